package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luki/incense/internal/button"
	"github.com/luki/incense/internal/capture"
	"github.com/luki/incense/internal/config"
	"github.com/luki/incense/internal/gesture"
	"github.com/luki/incense/internal/logging"
	"github.com/luki/incense/internal/motion"
	"github.com/luki/incense/internal/overlay"
	"github.com/luki/incense/internal/session"
)

// watchCmd runs detection without the terminal view.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Detect offerings without the terminal view",
	Long:  `Runs the gesture detector and offering countdown headless, logging each detection and offering as JSON on stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log := logging.New(cfg.Log.Path, cfg.Log.Level, true)
		defer log.Close()
		slog.SetDefault(log.Logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return watch(ctx, cfg, log.Logger)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watch(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	mgr := motion.NewManager(64, log)
	if err := mgr.Start(ctx, sourceOpener(cfg)); err != nil {
		log.Error(session.StatusUnavailable, "err", err)
		return err
	}
	defer mgr.Stop()
	log.Info(session.StatusPerform, "source", sourceName(cfg))

	var rec *capture.Writer
	if cfg.Capture.Record {
		w, err := capture.NewWriter(cfg.Capture.Dir)
		if err != nil {
			return err
		}
		defer w.Close()
		rec = w
	}

	var player overlay.Player = overlay.NopPlayer{}
	if cfg.Offering.Video != "" {
		p := overlay.NewExecPlayer(cfg.Offering.Player, cfg.Offering.Video, log)
		if err := p.Available(); err != nil {
			log.Warn("video overlay disabled", "err", err)
		} else {
			player = p
		}
	}
	defer player.Stop()

	actions := make(chan button.Action, 4)
	if cfg.Button.Device != "" {
		l, err := button.Open(cfg.Button.Device,
			button.BindingsFromCodes(cfg.Button.OfferCode, cfg.Button.ExtinguishCode), log)
		if err != nil {
			log.Warn("buttons disabled", "err", err)
		} else {
			go func() {
				err := l.Run(ctx, func(a button.Action) {
					select {
					case actions <- a:
					default:
					}
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("button listener stopped", "err", err)
				}
			}()
		}
	}

	det := gesture.New(cfg.Gesture)
	sess := session.New(cfg.Offering.Duration)

	offer := func(now time.Time, trigger string) {
		if !sess.Start(now) {
			log.Debug("offering ignored, incense already burning", "trigger", trigger)
			return
		}
		log.Info("offering started",
			"session", sess.ID(),
			"trigger", trigger,
			"duration", sess.Duration(),
			"started", sess.StartedAt())
		if err := player.Start(ctx); err != nil {
			log.Warn("overlay player failed", "err", err)
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping", "offerings", sess.Offerings(), "samples", mgr.Stats().Received)
			return nil

		case s, ok := <-mgr.Samples():
			if !ok {
				if sess.Burning() {
					log.Info("offering interrupted",
						"session", sess.ID(),
						"remaining", session.FormatRemaining(sess.Remaining()))
					sess.Stop()
					player.Stop()
				}
				if err := mgr.Err(); err != nil {
					return err
				}
				log.Info("motion source ended", "offerings", sess.Offerings())
				return nil
			}
			if rec != nil {
				if err := rec.Write(s); err != nil {
					log.Error("record sample", "err", err)
				}
			}
			if det.Process(s) {
				log.Info("incense motion detected", "pitch", s.Pitch, "at", s.Time)
				offer(time.Now(), "gesture")
			}

		case a := <-actions:
			switch a {
			case button.Offer:
				offer(time.Now(), "button")
			case button.Extinguish:
				if sess.Stop() {
					player.Stop()
					log.Info("offering extinguished", "session", sess.ID(), "trigger", "button")
				}
			}

		case <-ticker.C:
			if sess.Tick() {
				player.Stop()
				log.Info("offering finished", "session", sess.ID())
			} else if sess.Burning() {
				log.Debug("incense burning", "remaining", session.FormatRemaining(sess.Remaining()))
			}
		}
	}
}
