// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// LossEvent is published on the loss topic when a tick loses its signal.
type LossEvent struct {
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// MQTT publishes fixes straight to a broker topic, bypassing the collector.
type MQTT struct {
	client    mqtt.Client
	topic     string
	lossTopic string
	deviceID  string
	timeout   time.Duration
	logger    *log.Logger
}

// NewMQTT publishes on an already connected client. An empty lossTopic
// disables loss events.
func NewMQTT(client mqtt.Client, topic, lossTopic, deviceID string, timeout time.Duration, logger *log.Logger) *MQTT {
	if logger == nil {
		logger = log.Default()
	}
	return &MQTT{
		client:    client,
		topic:     topic,
		lossTopic: lossTopic,
		deviceID:  deviceID,
		timeout:   timeout,
		logger:    logger,
	}
}

func (m *MQTT) HandleFix(_ context.Context, f gps.Fix) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("mqtt sink: marshal fix: %w", err)
	}
	return m.publish(m.topic, true, payload)
}

func (m *MQTT) HandleLoss(_ context.Context, at time.Time) {
	if m.lossTopic == "" {
		return
	}
	payload, err := json.Marshal(LossEvent{DeviceID: m.deviceID, Timestamp: gps.FormatTime(at), Status: "signal_lost"})
	if err != nil {
		m.logger.Printf("mqtt: marshal loss event: %v", err)
		return
	}
	if err := m.publish(m.lossTopic, false, payload); err != nil {
		m.logger.Printf("mqtt: %v", err)
	}
}

func (m *MQTT) publish(topic string, retained bool, payload []byte) error {
	token := m.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt sink: publish to %s timed out after %s", topic, m.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt sink: publish to %s: %w", topic, err)
	}
	return nil
}
