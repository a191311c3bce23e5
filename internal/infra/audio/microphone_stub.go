//go:build !portaudio
// +build !portaudio

package audio

import (
	"fmt"
	"log/slog"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// Microphone stub when portaudio is not available
type Microphone struct {
	logger *slog.Logger
}

func NewMicrophone(logger *slog.Logger) *Microphone {
	return &Microphone{logger: logger}
}

func (m *Microphone) Name() string {
	return "portaudio"
}

func (m *Microphone) Open(_ wav.Format, _ int) (application.InputStream, error) {
	return nil, fmt.Errorf("microphone not available: rebuild with -tags portaudio")
}
