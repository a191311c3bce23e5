package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
)

// ErrControllerStopped is returned to callers once Run has exited.
var ErrControllerStopped = errors.New("controller stopped")

type commandKind int

const (
	cmdRecord commandKind = iota
	cmdPlay
	cmdStop
	cmdStatus
)

func (k commandKind) String() string {
	switch k {
	case cmdRecord:
		return "record"
	case cmdPlay:
		return "play"
	case cmdStop:
		return "stop"
	default:
		return "status"
	}
}

type command struct {
	kind  commandKind
	clip  string
	reply chan result
}

type result struct {
	recording domain.Recording
	status    domain.PlaybackStatus
	err       error
}

type ControllerConfig struct {
	DefaultClip     string
	CaptureDuration time.Duration
	Tick            time.Duration
}

// Controller owns the capture and playback state. All state changes happen on
// the goroutine running Run; the exported command methods only enqueue work
// and wait for the loop to answer.
//
// Recording runs inline in the loop, so playback polling and other commands
// wait until the capture finishes.
type Controller struct {
	capture  *Capture
	player   *Player
	notifier Notifier
	logger   *slog.Logger
	cfg      ControllerConfig

	commands chan command
	done     chan struct{}
}

func NewController(capture *Capture, player *Player, notifier Notifier, cfg ControllerConfig, logger *slog.Logger) *Controller {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Controller{
		capture:  capture,
		player:   player,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		commands: make(chan command, 16),
		done:     make(chan struct{}),
	}
}

// Run executes the control loop until ctx is cancelled. Each tick services
// every pending command before polling playback once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.Tick)
	defer ticker.Stop()

	c.logger.Info("controller ready",
		"default_clip", c.cfg.DefaultClip,
		"capture_duration", c.cfg.CaptureDuration,
		"tick", c.cfg.Tick,
	)

	for {
		select {
		case <-ctx.Done():
			c.player.Stop()
			return ctx.Err()
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		case <-ticker.C:
			c.drain(ctx)
			c.player.Poll()
		}
	}
}

func (c *Controller) drain(ctx context.Context) {
	for {
		select {
		case cmd := <-c.commands:
			c.handle(ctx, cmd)
		default:
			return
		}
	}
}

func (c *Controller) Record(ctx context.Context, clip string) (domain.Recording, error) {
	res, err := c.submit(ctx, cmdRecord, clip)
	return res.recording, err
}

func (c *Controller) Play(ctx context.Context, clip string) (domain.PlaybackStatus, error) {
	res, err := c.submit(ctx, cmdPlay, clip)
	return res.status, err
}

func (c *Controller) Stop(ctx context.Context) (domain.PlaybackStatus, error) {
	res, err := c.submit(ctx, cmdStop, "")
	return res.status, err
}

func (c *Controller) Status(ctx context.Context) (domain.PlaybackStatus, error) {
	res, err := c.submit(ctx, cmdStatus, "")
	return res.status, err
}

func (c *Controller) submit(ctx context.Context, kind commandKind, clip string) (result, error) {
	cmd := command{kind: kind, clip: clip, reply: make(chan result, 1)}

	select {
	case c.commands <- cmd:
	case <-c.done:
		return result{}, ErrControllerStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, res.err
	case <-c.done:
		return result{}, ErrControllerStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (c *Controller) handle(ctx context.Context, cmd command) {
	var res result

	switch cmd.kind {
	case cmdRecord:
		res.recording, res.err = c.record(ctx, cmd.clip)
	case cmdPlay:
		res.err = c.play(cmd.clip)
	case cmdStop:
		c.player.Stop()
	}
	res.status = c.player.Status()

	if res.err != nil {
		c.logger.Warn("command failed", "command", cmd.kind.String(), "error", res.err)
	}
	cmd.reply <- res
}

func (c *Controller) resolveClip(clip string) (string, error) {
	if clip == "" {
		clip = c.cfg.DefaultClip
	}
	if err := domain.ValidateClipName(clip); err != nil {
		return "", err
	}
	return clip, nil
}

func (c *Controller) record(ctx context.Context, clip string) (domain.Recording, error) {
	clip, err := c.resolveClip(clip)
	if err != nil {
		return domain.Recording{}, err
	}
	if c.player.Active() {
		return domain.Recording{}, fmt.Errorf("%w: playback in progress", domain.ErrBusy)
	}

	n, err := c.capture.Record(ctx, clip, c.cfg.CaptureDuration)
	rec := domain.Recording{Clip: clip, Bytes: n, Duration: c.cfg.CaptureDuration}
	if err != nil {
		notifyInBackground(ctx, c.notifier, c.logger, fmt.Sprintf("Recording %s failed: %v", clip, err))
		return rec, err
	}

	notifyInBackground(ctx, c.notifier, c.logger, fmt.Sprintf("Recording %s saved (%d bytes)", clip, n))
	return rec, nil
}

func (c *Controller) play(clip string) error {
	clip, err := c.resolveClip(clip)
	if err != nil {
		return err
	}
	return c.player.Play(clip)
}
