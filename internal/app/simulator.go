package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/config"
	"github.com/relabs-tech/gps_simulator/internal/emitter"
	"github.com/relabs-tech/gps_simulator/internal/movement"
	"github.com/relabs-tech/gps_simulator/internal/sinks"
)

// RunSimulator drives the configured movement model into every configured
// output until SIGINT/SIGTERM.
func RunSimulator(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := movement.NewRand(cfg.SimSeed)
	model, err := buildModel(cfg, rng)
	if err != nil {
		return err
	}

	sink, closeSinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	em := emitter.New(emitterOptions(cfg, rng))
	log.Printf("simulator: %s for %s from (%.6f, %.6f) -> %v",
		model.Kind(), cfg.DeviceID, cfg.SimStartLat, cfg.SimStartLon, cfg.SimOutputs)

	if err := em.Run(ctx, model, sink); err != nil {
		return err
	}
	log.Println("simulator: shutting down")
	return nil
}

// emitterOptions shares rng with the model; both only run on the
// emitter's goroutine.
func emitterOptions(cfg *config.Config, rng *rand.Rand) emitter.Options {
	return emitter.Options{
		DeviceID:       cfg.DeviceID,
		Interval:       time.Duration(cfg.SimIntervalMS) * time.Millisecond,
		SignalLoss:     cfg.SimSignalLoss,
		DeriveMetadata: cfg.SimDeriveMetadata,
		Accuracy:       cfg.SimAccuracyM,
		Rand:           rng,
	}
}

func buildModel(cfg *config.Config, rng *rand.Rand) (movement.Model, error) {
	kind, err := movement.ParseKind(cfg.SimMode)
	if err != nil {
		return nil, err
	}

	opts := movement.Options{
		Start:    movement.Position{Lat: cfg.SimStartLat, Lon: cfg.SimStartLon},
		StepDeg:  cfg.SimStepDeg,
		Interval: time.Duration(cfg.SimIntervalMS) * time.Millisecond,
		Rand:     rng,
	}
	if kind == movement.KindPresetPath {
		opts.Path = movement.LoadPath(cfg.PresetPathFile)
	}
	return movement.New(kind, opts)
}

// buildSinks opens every output named in SIM_OUTPUT. The returned func
// releases whatever was opened.
func buildSinks(cfg *config.Config) (emitter.Sink, func(), error) {
	var (
		out     emitter.Multi
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	timeout := time.Duration(cfg.PublishTimeoutMS) * time.Millisecond

	for _, name := range cfg.SimOutputs {
		switch name {
		case config.OutputHTTP:
			out = append(out, sinks.NewHTTP(cfg.CollectorURL, cfg.SimSimulateIssues, timeout, nil))

		case config.OutputMQTT:
			client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDSimulator)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, func() { client.Disconnect(250) })
			out = append(out, sinks.NewMQTT(client, cfg.TopicGPS, cfg.TopicGPSLoss, cfg.DeviceID, timeout, nil))

		case config.OutputConsole:
			out = append(out, sinks.NewConsole(os.Stdout))

		case config.OutputNMEA:
			var w io.Writer = os.Stdout
			if cfg.NMEASerialPort != "" {
				port, err := sinks.OpenSerial(cfg.NMEASerialPort, cfg.NMEABaudRate)
				if err != nil {
					closeAll()
					return nil, nil, err
				}
				log.Printf("simulator: writing NMEA to %s at %d baud", cfg.NMEASerialPort, cfg.NMEABaudRate)
				closers = append(closers, func() { port.Close() })
				w = port
			}
			out = append(out, sinks.NewNMEA(w, nil))

		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown output %q", name)
		}
	}

	if len(out) == 1 {
		return out[0], closeAll, nil
	}
	return out, closeAll, nil
}
