//go:build portaudio
// +build portaudio

package audio

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// Speaker plays 16-bit PCM on the default output device.
type Speaker struct {
	framesPerBuffer int
	logger          *slog.Logger
}

func NewSpeaker(framesPerBuffer int, logger *slog.Logger) *Speaker {
	return &Speaker{framesPerBuffer: framesPerBuffer, logger: logger}
}

func (s *Speaker) Name() string {
	return "portaudio"
}

func (s *Speaker) Open(format wav.Format) (application.OutputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, s.framesPerBuffer*format.Channels)
	stream, err := portaudio.OpenDefaultStream(
		0,
		format.Channels,
		float64(format.SampleRate),
		s.framesPerBuffer,
		buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	s.logger.Info("speaker started", "sampleRate", format.SampleRate, "channels", format.Channels)
	return &speakerStream{stream: stream, buffer: buffer, logger: s.logger}, nil
}

type speakerStream struct {
	stream *portaudio.Stream
	buffer []int16
	logger *slog.Logger
}

// Write blocks until every sample has been handed to the device. A trailing
// partial buffer is padded with silence.
func (s *speakerStream) Write(samples []int16) error {
	for len(samples) > 0 {
		n := copy(s.buffer, samples)
		clear(s.buffer[n:])
		samples = samples[n:]

		if err := s.stream.Write(); err != nil {
			if !errors.Is(err, portaudio.OutputUnderflowed) {
				return fmt.Errorf("writing to stream: %w", err)
			}
			s.logger.Debug("output underflowed")
		}
	}
	return nil
}

func (s *speakerStream) Close() error {
	defer portaudio.Terminate()

	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("stopping stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}
