package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_simulator/internal/config"
	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/sinks"
)

// RunConsoleMQTT prints every fix and loss event seen on the broker.
func RunConsoleMQTT(cfg *config.Config) error {
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	// Subscribe to fixes
	fixToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: fix unmarshal error: %v", err)
			return
		}
		fmt.Println(formatFix(f))
	})
	fixToken.Wait()
	if fixToken.Error() != nil {
		return fixToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Subscribe to loss events
	if cfg.TopicGPSLoss != "" {
		lossToken := client.Subscribe(cfg.TopicGPSLoss, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var ev sinks.LossEvent
			if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
				log.Printf("console: loss unmarshal error: %v", err)
				return
			}
			fmt.Printf("[LOSS]  %s  no fix at %s\n", ev.DeviceID, ev.Timestamp)
		})
		lossToken.Wait()
		if lossToken.Error() != nil {
			return lossToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicGPSLoss)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
