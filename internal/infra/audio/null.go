package audio

import (
	"time"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// SilenceInput produces zeroed frames at the real-time rate of the format.
// It lets the recorder run on machines without a capture device.
type SilenceInput struct {
	sleep func(time.Duration)
}

func NewSilenceInput() *SilenceInput {
	return &SilenceInput{sleep: time.Sleep}
}

func (s *SilenceInput) Name() string {
	return "silence"
}

func (s *SilenceInput) Open(format wav.Format, _ int) (application.InputStream, error) {
	return &silenceStream{format: format, sleep: s.sleep}, nil
}

type silenceStream struct {
	format wav.Format
	sleep  func(time.Duration)
}

func (s *silenceStream) Read(p []byte) (int, error) {
	n := len(p) - len(p)%s.format.BlockAlign()
	clear(p[:n])
	s.sleep(bytesDuration(n, s.format))
	return n, nil
}

func (s *silenceStream) Close() error {
	return nil
}

// DiscardOutput drops samples after waiting as long as playing them would.
type DiscardOutput struct {
	sleep func(time.Duration)
}

func NewDiscardOutput() *DiscardOutput {
	return &DiscardOutput{sleep: time.Sleep}
}

func (d *DiscardOutput) Name() string {
	return "discard"
}

func (d *DiscardOutput) Open(format wav.Format) (application.OutputStream, error) {
	return &discardStream{format: format, sleep: d.sleep}, nil
}

type discardStream struct {
	format wav.Format
	sleep  func(time.Duration)
}

func (d *discardStream) Write(samples []int16) error {
	d.sleep(bytesDuration(len(samples)*2, wav.Format{
		SampleRate:    d.format.SampleRate,
		BitsPerSample: 16,
		Channels:      d.format.Channels,
	}))
	return nil
}

func (d *discardStream) Close() error {
	return nil
}

func bytesDuration(n int, format wav.Format) time.Duration {
	rate := format.ByteRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(rate))
}
