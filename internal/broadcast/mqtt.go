// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package broadcast

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// MQTT republishes accepted fixes as retained messages on a topic.
type MQTT struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	logger  *log.Logger
}

func NewMQTT(client mqtt.Client, topic string, timeout time.Duration, logger *log.Logger) *MQTT {
	if logger == nil {
		logger = log.Default()
	}
	return &MQTT{client: client, topic: topic, timeout: timeout, logger: logger}
}

func (m *MQTT) Broadcast(f gps.Fix) {
	payload, err := json.Marshal(f)
	if err != nil {
		m.logger.Printf("mqtt: marshal error: %v", err)
		return
	}

	token := m.client.Publish(m.topic, 0, true, payload)
	go func() {
		if !token.WaitTimeout(m.timeout) {
			m.logger.Printf("mqtt: publish to %s timed out", m.topic)
			return
		}
		if err := token.Error(); err != nil {
			m.logger.Printf("mqtt: publish to %s: %v", m.topic, err)
		}
	}()
}
