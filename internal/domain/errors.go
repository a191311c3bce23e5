package domain

import "errors"

var (
	// ErrStorageUnavailable means the clip could not be opened or written on storage.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDecodeInitFailed means the clip is missing or is not a playable wav file.
	ErrDecodeInitFailed = errors.New("decoder initialization failed")
	// ErrPeripheralInitFailed means the audio input or output device could not be opened.
	ErrPeripheralInitFailed = errors.New("audio peripheral initialization failed")
	// ErrBusy is returned when a command conflicts with the active session.
	ErrBusy = errors.New("audio device busy")

	ErrInvalidClip = errors.New("invalid clip name")
)
