package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

var ErrInvalidWav = errors.New("not a valid wav file")

// WavDecoderFactory decodes PCM clips with go-audio/wav.
type WavDecoderFactory struct{}

// NewDecoder checks the canonical header before handing the clip to
// go-audio, so malformed clips fail with the wav package's sentinel errors.
func (WavDecoderFactory) NewDecoder(r io.ReadSeeker) (application.Decoder, error) {
	header, err := wav.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := header.Format.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding clip: %w", err)
	}

	d := gowav.NewDecoder(r)
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWav, err)
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWav, err)
	}
	if d.PCMChunk == nil {
		return nil, fmt.Errorf("%w: no data chunk", ErrInvalidWav)
	}

	return &wavDecoder{
		dec:    d,
		format: header.Format,
		buf: &goaudio.IntBuffer{
			Format:         d.Format(),
			SourceBitDepth: header.BitsPerSample,
		},
	}, nil
}

type wavDecoder struct {
	dec    *gowav.Decoder
	format wav.Format
	buf    *goaudio.IntBuffer
}

func (w *wavDecoder) Format() wav.Format {
	return w.format
}

// Decode fills dst with up to len(dst) samples scaled to 16 bits.
func (w *wavDecoder) Decode(dst []int16) (int, error) {
	if cap(w.buf.Data) < len(dst) {
		w.buf.Data = make([]int, len(dst))
	}
	w.buf.Data = w.buf.Data[:len(dst)]

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decoding pcm: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		dst[i] = toInt16(w.buf.Data[i], w.format.BitsPerSample)
	}
	return n, nil
}

func toInt16(v, bits int) int16 {
	switch bits {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
