package main

import (
	"fmt"
	"os"

	"github.com/luki/incense/internal/capture"
	"github.com/luki/incense/internal/config"
	"github.com/luki/incense/internal/motion"
)

// sourceOpener returns a function that opens the configured motion source.
func sourceOpener(cfg config.Config) func() (motion.Source, error) {
	return func() (motion.Source, error) {
		switch cfg.Source {
		case config.SourceSerial:
			return motion.OpenSerial(cfg.Serial.Port, cfg.Serial.PortOptions)
		case config.SourceReplay:
			samples, err := capture.LoadFile(cfg.Replay.File)
			if err != nil {
				return nil, err
			}
			if len(samples) == 0 {
				return nil, fmt.Errorf("%s holds no samples", cfg.Replay.File)
			}
			return motion.NewReplaySource(samples, cfg.Replay.Speed, cfg.Replay.Loop), nil
		case config.SourceStdin:
			return motion.NewLineSource(os.Stdin), nil
		case config.SourceSim:
			return motion.NewSimSource(cfg.Interval, cfg.Sim.Period), nil
		default:
			return nil, fmt.Errorf("unknown source %q", cfg.Source)
		}
	}
}

func sourceName(cfg config.Config) string {
	switch cfg.Source {
	case config.SourceSerial:
		return "serial " + cfg.Serial.Port
	case config.SourceReplay:
		return "replay " + cfg.Replay.File
	default:
		return cfg.Source
	}
}
