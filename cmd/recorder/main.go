package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/XaviFdez/proyecto-emergencia/config"
	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/infra/audio"
	"github.com/XaviFdez/proyecto-emergencia/internal/infra/pushover"
	"github.com/XaviFdez/proyecto-emergencia/internal/wav"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "recorder",
	Short:         "Record microphone audio to WAV clips and play them back",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(
		serveCmd(),
		recordCmd(),
		playCmd(),
		inspectCmd(),
	)
}

// app holds the components shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *audio.FileStore
	capture *application.Capture
	player  *application.Player
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Log, os.Stdout)

	store := audio.NewFileStore(cfg.Storage.Dir)
	if err := store.Init(); err != nil {
		return nil, err
	}

	format := cfg.Audio.Format()
	capture := application.NewCapture(createAudioInput(cfg.Audio, logger), store, format, cfg.Audio.FrameBytes, logger)
	player := application.NewPlayer(
		store,
		audio.WavDecoderFactory{},
		createAudioOutput(cfg, logger),
		cfg.Playback.ChunkSamples,
		logger,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		capture: capture,
		player:  player,
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			var notifier application.Notifier = &application.NoopNotifier{}
			if a.cfg.Pushover.Enabled {
				notifier = pushover.NewClient(a.cfg.Pushover.Token, a.cfg.Pushover.UserKey)
			}

			controller := application.NewController(a.capture, a.player, notifier, application.ControllerConfig{
				DefaultClip:     a.cfg.Storage.DefaultClip,
				CaptureDuration: a.cfg.Audio.CaptureDuration,
				Tick:            a.cfg.Playback.Tick,
			}, a.logger)

			server := audio.NewHTTPServer(audio.ServerConfig{
				Addr:            a.cfg.HTTP.Addr,
				AuthToken:       a.cfg.HTTP.AuthToken,
				RateLimit:       a.cfg.HTTP.RateLimit,
				RateWindow:      a.cfg.HTTP.RateWindow,
				CaptureDuration: a.cfg.Audio.CaptureDuration,
			}, controller, a.store, a.logger)

			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("starting server: %w", err)
			}
			defer server.Stop()

			a.logger.Info("starting audio recorder",
				"input", a.cfg.Audio.Input,
				"output", a.cfg.Audio.Output,
				"storage", a.store.Dir(),
			)

			if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("controller: %w", err)
			}
			a.logger.Info("shutting down")
			return nil
		},
	}
}

func recordCmd() *cobra.Command {
	var (
		clip     string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one clip without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if clip == "" {
				clip = a.cfg.Storage.DefaultClip
			}
			if duration <= 0 {
				duration = a.cfg.Audio.CaptureDuration
			}

			ctx, cancel := signalContext()
			defer cancel()

			n, err := a.capture.Record(ctx, clip, duration)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s: %d bytes of PCM\n", clip, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&clip, "clip", "", "clip name (defaults to storage.default_clip)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "capture duration (defaults to audio.capture_duration)")
	return cmd
}

func playCmd() *cobra.Command {
	var clip string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one clip to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if clip == "" {
				clip = a.cfg.Storage.DefaultClip
			}

			ctx, cancel := signalContext()
			defer cancel()

			if err := a.player.Play(clip); err != nil {
				return err
			}
			for a.player.Active() {
				select {
				case <-ctx.Done():
					a.player.Stop()
					return nil
				default:
					a.player.Poll()
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clip, "clip", "", "clip name (defaults to storage.default_clip)")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the WAV header of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd.OutOrStdout(), args[0])
		},
	}
}

func inspect(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	h, err := wav.ReadHeader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(w, "sample rate:     %d Hz\n", h.SampleRate)
	fmt.Fprintf(w, "channels:        %d\n", h.Channels)
	fmt.Fprintf(w, "bits per sample: %d\n", h.BitsPerSample)
	fmt.Fprintf(w, "data size:       %d bytes\n", h.DataSize)
	if rate := h.ByteRate(); rate > 0 {
		fmt.Fprintf(w, "duration:        %s\n", time.Duration(int64(h.DataSize)*int64(time.Second)/int64(rate)))
	}

	if want := int64(wav.HeaderSize) + int64(h.DataSize); info.Size() != want {
		fmt.Fprintf(w, "warning: file is %d bytes, header expects %d\n", info.Size(), want)
	}
	return nil
}

func createAudioInput(cfg config.AudioConfig, logger *slog.Logger) application.AudioInput {
	switch cfg.Input {
	case "silence":
		return audio.NewSilenceInput()
	default:
		return audio.NewMicrophone(logger)
	}
}

func createAudioOutput(cfg *config.Config, logger *slog.Logger) application.AudioOutput {
	switch cfg.Audio.Output {
	case "discard":
		return audio.NewDiscardOutput()
	default:
		return audio.NewSpeaker(cfg.Playback.ChunkSamples, logger)
	}
}

func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
