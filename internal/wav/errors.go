package wav

import "errors"

var (
	ErrShortHeader       = errors.New("wav header shorter than 44 bytes")
	ErrNotRIFF           = errors.New("not a RIFF file")
	ErrNotWAVE           = errors.New("not a WAVE file")
	ErrUnsupportedLayout = errors.New("unsupported wav chunk layout")
	ErrNotPCM            = errors.New("only PCM wav is supported")
	ErrInvalidFormat     = errors.New("invalid audio format")
)
