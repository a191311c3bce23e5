package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

// Capture records a fixed-duration clip from the audio input.
type Capture struct {
	input      AudioInput
	store      ClipStore
	format     wav.Format
	frameBytes int
	logger     *slog.Logger
	now        func() time.Time
}

func NewCapture(input AudioInput, store ClipStore, format wav.Format, frameBytes int, logger *slog.Logger) *Capture {
	return &Capture{
		input:      input,
		store:      store,
		format:     format,
		frameBytes: frameBytes,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock used for the capture deadline.
func (c *Capture) WithClock(now func() time.Time) *Capture {
	c.now = now
	return c
}

type captureSession struct {
	start   time.Time
	end     time.Time
	written int64
}

// Record captures audio into clip until duration has elapsed and returns the
// number of PCM bytes written. The file always ends up with a header whose
// data size matches the payload, including when the loop ends early.
func (c *Capture) Record(ctx context.Context, clip string, duration time.Duration) (int64, error) {
	stream, err := c.input.Open(c.format, c.frameBytes)
	if err != nil {
		c.logger.Error("opening audio input", "input", c.input.Name(), "error", err)
		return 0, fmt.Errorf("%w: %w", domain.ErrPeripheralInitFailed, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warn("closing audio input", "error", err)
		}
	}()

	file, err := c.store.Create(clip)
	if err != nil {
		c.logger.Error("opening clip for writing", "clip", clip, "error", err)
		return 0, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	if err := wav.WriteHeader(file, c.format, 0); err != nil {
		file.Close()
		return 0, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	start := c.now()
	session := captureSession{start: start, end: start.Add(duration)}
	c.logger.Info("recording started", "clip", clip, "duration", duration)

	loopErr := c.captureLoop(ctx, stream, file, &session)

	if err := wav.WriteHeader(file, c.format, uint32(session.written)); err != nil {
		file.Close()
		return session.written, fmt.Errorf("%w: patching header: %w", domain.ErrStorageUnavailable, err)
	}
	if err := file.Close(); err != nil {
		return session.written, fmt.Errorf("%w: closing clip: %w", domain.ErrStorageUnavailable, err)
	}

	c.logger.Info("recording saved",
		"clip", clip,
		"bytes", session.written,
		"elapsed", c.now().Sub(session.start),
	)

	return session.written, loopErr
}

func (c *Capture) captureLoop(ctx context.Context, stream InputStream, file io.Writer, session *captureSession) error {
	buf := make([]byte, c.frameBytes)

	for c.now().Before(session.end) {
		if ctx.Err() != nil {
			c.logger.Warn("recording interrupted", "bytes", session.written)
			return nil
		}

		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: writing pcm: %w", domain.ErrStorageUnavailable, werr)
			}
			session.written += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Warn("audio input ended before deadline", "bytes", session.written)
				return nil
			}
			c.logger.Error("reading audio input", "error", err)
			return fmt.Errorf("reading audio input: %w", err)
		}
	}

	return nil
}
