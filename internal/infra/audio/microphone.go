//go:build portaudio
// +build portaudio

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// Microphone captures 16-bit PCM from the default input device.
type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func (m *Microphone) Name() string {
	return "portaudio"
}

// Open starts a capture stream whose buffer holds exactly one frame of
// frameBytes. The stream is torn down again by Close.
func (m *Microphone) Open(format wav.Format, frameBytes int) (application.InputStream, error) {
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("microphone supports 16-bit samples, got %d", format.BitsPerSample)
	}

	samples := frameBytes / 2
	framesPerBuffer := samples / format.Channels
	if framesPerBuffer == 0 {
		return nil, fmt.Errorf("frame of %d bytes holds no samples", frameBytes)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer*format.Channels)
	stream, err := portaudio.OpenDefaultStream(
		format.Channels,
		0,
		float64(format.SampleRate),
		framesPerBuffer,
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

	m.logger.Info("microphone started", "sampleRate", format.SampleRate, "framesPerBuffer", framesPerBuffer)
	return &micStream{stream: stream, buffer: buffer, logger: m.logger}, nil
}

type micStream struct {
	stream *portaudio.Stream
	buffer []int16
	logger *slog.Logger
}

// Read blocks until the stream buffer is full and copies it into p as
// little-endian bytes.
func (s *micStream) Read(p []byte) (int, error) {
	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return 0, fmt.Errorf("reading from stream: %w", err)
		}
		s.logger.Debug("input overflowed")
	}

	n := 0
	for _, sample := range s.buffer {
		if n+2 > len(p) {
			break
		}
		binary.LittleEndian.PutUint16(p[n:], uint16(sample))
		n += 2
	}
	return n, nil
}

func (s *micStream) Close() error {
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
