package application

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
)

// PlaybackSession owns the open clip, its decoder and the output sink for
// one playback.
type PlaybackSession struct {
	id        string
	clip      string
	state     domain.PlaybackState
	startedAt time.Time

	file    ClipReader
	decoder Decoder
	sink    OutputStream
	buf     []int16
	samples int64

	released bool
}

func (s *PlaybackSession) ID() string                  { return s.id }
func (s *PlaybackSession) Clip() string                { return s.clip }
func (s *PlaybackSession) State() domain.PlaybackState { return s.state }

// release closes the sink and the clip. It runs at most once per session.
func (s *PlaybackSession) release(logger *slog.Logger) {
	if s.released {
		return
	}
	s.released = true

	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			logger.Warn("closing audio output", "session", s.id, "error", err)
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			logger.Warn("closing clip", "session", s.id, "error", err)
		}
	}
	s.sink = nil
	s.decoder = nil
	s.file = nil
}

// Player drives at most one PlaybackSession. It is not safe for concurrent
// use; the Controller loop is its only caller.
type Player struct {
	store        ClipStore
	decoders     DecoderFactory
	output       AudioOutput
	chunkSamples int
	logger       *slog.Logger

	session *PlaybackSession
	last    *PlaybackSession
}

func NewPlayer(store ClipStore, decoders DecoderFactory, output AudioOutput, chunkSamples int, logger *slog.Logger) *Player {
	return &Player{
		store:        store,
		decoders:     decoders,
		output:       output,
		chunkSamples: chunkSamples,
		logger:       logger,
	}
}

// Play starts a session for clip, tearing down any session already running.
// On failure the player is left idle.
func (p *Player) Play(clip string) error {
	if p.session != nil {
		p.logger.Info("replacing active playback", "session", p.session.id, "clip", p.session.clip)
		p.end(domain.PlaybackStopped)
	}

	s := &PlaybackSession{
		id:        uuid.NewString(),
		clip:      clip,
		state:     domain.PlaybackStarting,
		startedAt: time.Now(),
	}

	file, err := p.store.Open(clip)
	if err != nil {
		p.logger.Error("opening clip for playback", "clip", clip, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrDecodeInitFailed, err)
	}
	s.file = file

	decoder, err := p.decoders.NewDecoder(file)
	if err != nil {
		s.release(p.logger)
		p.logger.Error("initializing decoder", "clip", clip, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrDecodeInitFailed, err)
	}
	s.decoder = decoder

	format := decoder.Format()
	sink, err := p.output.Open(format)
	if err != nil {
		s.release(p.logger)
		p.logger.Error("opening audio output", "output", p.output.Name(), "error", err)
		return fmt.Errorf("%w: %w", domain.ErrPeripheralInitFailed, err)
	}
	s.sink = sink
	s.buf = make([]int16, p.chunkSamples*format.Channels)

	s.state = domain.PlaybackRunning
	p.session = s

	p.logger.Info("playback started",
		"session", s.id,
		"clip", clip,
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
	)
	return nil
}

// Poll decodes one chunk of the active session and writes it to the output.
// It does nothing while idle.
func (p *Player) Poll() {
	s := p.session
	if s == nil {
		return
	}

	n, err := s.decoder.Decode(s.buf)
	if n > 0 {
		if werr := s.sink.Write(s.buf[:n]); werr != nil {
			p.logger.Error("writing audio output", "session", s.id, "error", werr)
			p.end(domain.PlaybackFinished)
			return
		}
		s.samples += int64(n)
	}

	switch {
	case err != nil && !errors.Is(err, io.EOF):
		p.logger.Error("decoding clip", "session", s.id, "error", err)
		p.end(domain.PlaybackFinished)
	case err != nil || n == 0:
		p.end(domain.PlaybackFinished)
	}
}

// Stop halts the active session. Stopping an idle player is a no-op.
func (p *Player) Stop() {
	if p.session == nil {
		return
	}
	p.end(domain.PlaybackStopped)
}

// Active reports whether a session is running.
func (p *Player) Active() bool {
	return p.session != nil
}

func (p *Player) Status() domain.PlaybackStatus {
	status := domain.PlaybackStatus{State: domain.PlaybackIdle}

	if s := p.session; s != nil {
		started := s.startedAt
		status.State = s.state
		status.Clip = s.clip
		status.SessionID = s.id
		status.StartedAt = &started
		status.SamplesPlayed = s.samples
	}
	if l := p.last; l != nil {
		status.LastOutcome = l.state
		status.LastClip = l.clip
	}
	return status
}

func (p *Player) end(outcome domain.PlaybackState) {
	s := p.session
	s.state = outcome
	s.release(p.logger)
	p.session = nil
	p.last = s

	if outcome == domain.PlaybackFinished {
		p.logger.Info("playback completed", "session", s.id, "clip", s.clip, "samples", s.samples)
	} else {
		p.logger.Info("playback stopped", "session", s.id, "clip", s.clip, "samples", s.samples)
	}
}
