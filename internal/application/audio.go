package application

import (
	"io"

	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// AudioInput opens the capture peripheral for one recording.
type AudioInput interface {
	Open(format wav.Format, frameBytes int) (InputStream, error)
	Name() string
}

// InputStream delivers little-endian PCM. Read blocks until a frame is
// available and may return fewer bytes than requested.
type InputStream interface {
	Read(p []byte) (int, error)
	Close() error
}

// AudioOutput opens the playback peripheral for one session.
type AudioOutput interface {
	Open(format wav.Format) (OutputStream, error)
	Name() string
}

// OutputStream accepts interleaved 16-bit samples.
type OutputStream interface {
	Write(samples []int16) error
	Close() error
}

type ClipWriter interface {
	io.Writer
	io.Seeker
	io.Closer
}

type ClipReader interface {
	io.Reader
	io.Seeker
	io.Closer
}

// ClipStore holds wav clips addressed by name.
type ClipStore interface {
	Create(name string) (ClipWriter, error)
	Open(name string) (ClipReader, error)
	List() ([]domain.Clip, error)
}

// Decoder turns a wav clip into interleaved 16-bit samples. Decode returns
// io.EOF once the data chunk is exhausted.
type Decoder interface {
	Format() wav.Format
	Decode(dst []int16) (int, error)
}

type DecoderFactory interface {
	NewDecoder(r io.ReadSeeker) (Decoder, error)
}
