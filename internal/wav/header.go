package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the length of the canonical PCM WAV header.
const HeaderSize = 44

const (
	pcmFmtChunkSize = 16
	formatPCM       = 1
)

// Format describes the PCM stream stored after the header.
type Format struct {
	SampleRate    int
	BitsPerSample int
	Channels      int
}

// DefaultFormat is 16 kHz mono 16-bit PCM.
func DefaultFormat() Format {
	return Format{
		SampleRate:    16000,
		BitsPerSample: 16,
		Channels:      1,
	}
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}
	switch f.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: bits per sample %d", ErrInvalidFormat, f.BitsPerSample)
	}
	return nil
}

// BlockAlign is the size in bytes of one frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the number of PCM bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Header is the decoded form of a canonical 44-byte header.
type Header struct {
	Format
	ChunkSize uint32
	DataSize  uint32
}

// Encode returns the 44-byte header for format followed by dataSize PCM bytes.
func Encode(format Format, dataSize uint32) []byte {
	header := make([]byte, HeaderSize)
	EncodeInto(header, format, dataSize)
	return header
}

// EncodeInto overwrites the first 44 bytes of dst. Every byte of the header is
// rewritten, so re-encoding an existing buffer only changes the size fields.
func EncodeInto(dst []byte, format Format, dataSize uint32) {
	_ = dst[HeaderSize-1]

	copy(dst[0:4], "RIFF")
	binary.LittleEndian.PutUint32(dst[4:8], dataSize+36)
	copy(dst[8:12], "WAVE")

	copy(dst[12:16], "fmt ")
	binary.LittleEndian.PutUint32(dst[16:20], pcmFmtChunkSize)
	binary.LittleEndian.PutUint16(dst[20:22], formatPCM)
	binary.LittleEndian.PutUint16(dst[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(dst[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(dst[28:32], uint32(format.ByteRate()))
	binary.LittleEndian.PutUint16(dst[32:34], uint16(format.BlockAlign()))
	binary.LittleEndian.PutUint16(dst[34:36], uint16(format.BitsPerSample))

	copy(dst[36:40], "data")
	binary.LittleEndian.PutUint32(dst[40:44], dataSize)
}

// Decode parses a canonical header. Only PCM with the data chunk directly
// after a 16-byte fmt chunk is accepted.
func Decode(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(b))
	}
	if string(b[0:4]) != "RIFF" {
		return Header{}, ErrNotRIFF
	}
	if string(b[8:12]) != "WAVE" {
		return Header{}, ErrNotWAVE
	}
	if string(b[12:16]) != "fmt " || binary.LittleEndian.Uint32(b[16:20]) != pcmFmtChunkSize {
		return Header{}, ErrUnsupportedLayout
	}
	if binary.LittleEndian.Uint16(b[20:22]) != formatPCM {
		return Header{}, ErrNotPCM
	}
	if string(b[36:40]) != "data" {
		return Header{}, ErrUnsupportedLayout
	}

	return Header{
		Format: Format{
			Channels:      int(binary.LittleEndian.Uint16(b[22:24])),
			SampleRate:    int(binary.LittleEndian.Uint32(b[24:28])),
			BitsPerSample: int(binary.LittleEndian.Uint16(b[34:36])),
		},
		ChunkSize: binary.LittleEndian.Uint32(b[4:8]),
		DataSize:  binary.LittleEndian.Uint32(b[40:44]),
	}, nil
}

// ReadHeader reads and decodes the header at the current position of r.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: %v", ErrShortHeader, err)
		}
		return Header{}, fmt.Errorf("reading header: %w", err)
	}
	return Decode(buf)
}

// WriteHeader seeks ws to offset 0 and writes the header there. It is used both
// for the placeholder of a fresh file and for patching the sizes in place.
func WriteHeader(ws io.WriteSeeker, format Format, dataSize uint32) error {
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to header: %w", err)
	}
	if _, err := ws.Write(Encode(format, dataSize)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}
