package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/broadcast"
	"github.com/relabs-tech/gps_simulator/internal/collector"
	"github.com/relabs-tech/gps_simulator/internal/config"
)

const shutdownGrace = 5 * time.Second

// RunCollector serves the ingestion API, history and the live viewer
// stream until SIGINT/SIGTERM.
func RunCollector(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := broadcast.NewHub(nil)
	go hub.Run(ctx)
	subscribers := broadcast.Multi{hub}

	publishTimeout := time.Duration(cfg.PublishTimeoutMS) * time.Millisecond

	// MQTT bridge is best effort: the collector still serves without a broker.
	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCollector)
		if err != nil {
			log.Printf("collector: MQTT bridge disabled: %v", err)
		} else {
			defer client.Disconnect(250)
			subscribers = append(subscribers, broadcast.NewMQTT(client, cfg.TopicGPS, publishTimeout, nil))
			log.Printf("collector: republishing accepted fixes on %s", cfg.TopicGPS)
		}
	}

	if cfg.AMQPURL != "" {
		bridge, err := broadcast.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, publishTimeout, nil)
		if err != nil {
			return fmt.Errorf("collector: %w", err)
		}
		defer bridge.Close()
		subscribers = append(subscribers, bridge)
		log.Printf("collector: publishing accepted fixes to AMQP exchange %s", cfg.AMQPExchange)
	}

	faults := collector.NewFaultInjector(
		time.Duration(cfg.FaultMaxDelayMS)*time.Millisecond,
		cfg.FaultLossProbability,
	)
	svc := collector.NewService(collector.Options{
		History:     collector.NewHistory(cfg.HistoryCapacity),
		Faults:      faults,
		Broadcaster: subscribers,
	})

	srv := &http.Server{
		Addr: cfg.CollectorAddr,
		Handler: collector.NewRouter(svc, collector.RouterOptions{
			RequestTimeout: time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
			Viewers:        hub,
			StaticDir:      cfg.WebDir,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("collector: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("collector: shutdown error: %v", err)
		}
	}()

	log.Printf("collector: listening on %s (history %d, fault delay <= %dms, loss %.0f%%)",
		cfg.CollectorAddr, cfg.HistoryCapacity, cfg.FaultMaxDelayMS, cfg.FaultLossProbability*100)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
