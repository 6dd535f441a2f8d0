package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luki/incense/internal/button"
	"github.com/luki/incense/internal/capture"
	"github.com/luki/incense/internal/config"
	"github.com/luki/incense/internal/logging"
	"github.com/luki/incense/internal/motion"
	"github.com/luki/incense/internal/overlay"
	"github.com/luki/incense/internal/shrine"
)

var optConfigFile string

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"source":        "source",
	"serial-port":   "serial.port",
	"baud":          "serial.baud_rate",
	"replay-file":   "replay.file",
	"replay-speed":  "replay.speed",
	"loop":          "replay.loop",
	"duration":      "offering.duration",
	"video":         "offering.video",
	"button-device": "button.device",
	"record":        "capture.record",
	"data-dir":      "capture.dir",
	"log-file":      "log.path",
	"log-level":     "log.level",
}

var rootCmd = &cobra.Command{
	Use:           "incense",
	Short:         "Offer incense with a wrist gesture",
	Long:          `Watches device motion for the incense-offering gesture: hands lowered, then raised within two seconds. Each offering burns for a fixed time with a looping overlay.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runShrine,
}

func init() {
	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optConfigFile, "config", "", "config file (default "+config.DefaultFile()+")")
	pFlags.String("source", config.SourceSim, "motion source: sim, serial, replay or stdin")
	pFlags.String("serial-port", "", "serial device of the IMU bridge")
	pFlags.Int("baud", 0, "serial baud rate")
	pFlags.String("replay-file", "", "capture file to replay")
	pFlags.Float64("replay-speed", 1, "replay speed multiplier, 0 for as fast as possible")
	pFlags.Bool("loop", false, "restart the replay when it ends")
	pFlags.Duration("duration", 0, "how long the incense burns")
	pFlags.String("video", "", "video played while the incense burns")
	pFlags.String("button-device", "", "input device for hardware buttons, e.g. /dev/input/event3")
	pFlags.Bool("record", false, "record motion samples for later replay")
	pFlags.String("data-dir", "", "directory for captures")
	pFlags.String("log-file", "", "log file")
	pFlags.String("log-level", "", "log level: debug, info, warn or error")
}

// loadConfig merges defaults, config file, environment and the flags the
// user actually set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	var bindErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return config.Config{}, bindErr
	}
	return config.Load(v, optConfigFile)
}

func runShrine(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log.Path, cfg.Log.Level, false)
	defer log.Close()
	slog.SetDefault(log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := shrine.Options{
		SourceName: sourceName(cfg),
		Gesture:    cfg.Gesture,
		Duration:   cfg.Offering.Duration,
		Log:        log.Logger,
		Context:    ctx,
	}

	mgr := motion.NewManager(64, log.Logger)
	if err := mgr.Start(ctx, sourceOpener(cfg)); err != nil {
		opts.SensorErr = err
	} else {
		opts.Sensor = mgr
		defer mgr.Stop()
	}

	if cfg.Capture.Record {
		w, err := capture.NewWriter(cfg.Capture.Dir)
		if err != nil {
			return err
		}
		defer w.Close()
		opts.Recorder = w
		opts.RecordDir = w.Dir()
	}

	if cfg.Offering.Video != "" {
		p := overlay.NewExecPlayer(cfg.Offering.Player, cfg.Offering.Video, log.Logger)
		if err := p.Available(); err != nil {
			log.Warn("video overlay disabled", "err", err)
		} else {
			opts.Player = p
		}
	}

	log.Info("starting", "source", opts.SourceName, "sensing", opts.Sensor != nil)

	teaOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.Source == config.SourceStdin {
		// samples arrive on stdin, so keys come from the terminal
		teaOpts = append(teaOpts, tea.WithInputTTY())
	}
	program := tea.NewProgram(shrine.New(opts), teaOpts...)

	if cfg.Button.Device != "" {
		l, err := button.Open(cfg.Button.Device,
			button.BindingsFromCodes(cfg.Button.OfferCode, cfg.Button.ExtinguishCode), log.Logger)
		if err != nil {
			log.Warn("buttons disabled", "err", err)
		} else {
			go func() {
				err := l.Run(ctx, func(a button.Action) {
					program.Send(shrine.ButtonMsg{Action: a})
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("button listener stopped", "err", err)
				}
			}()
		}
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("shrine: %w", err)
	}
	return nil
}
