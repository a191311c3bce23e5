//go:build !portaudio
// +build !portaudio

package audio

import (
	"fmt"
	"log/slog"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// Speaker stub when portaudio is not available
type Speaker struct {
	logger *slog.Logger
}

func NewSpeaker(_ int, logger *slog.Logger) *Speaker {
	return &Speaker{logger: logger}
}

func (s *Speaker) Name() string {
	return "portaudio"
}

func (s *Speaker) Open(_ wav.Format) (application.OutputStream, error) {
	return nil, fmt.Errorf("speaker not available: rebuild with -tags portaudio")
}
