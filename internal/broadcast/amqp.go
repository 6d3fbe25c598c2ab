// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

const amqpQueueSize = 256

// amqpPublisher is the part of *amqp.Channel the bridge uses.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP publishes accepted fixes to a fanout exchange. Broadcast only
// queues; a single goroutine owns the channel and publishes in order.
type AMQP struct {
	conn     *amqp.Connection
	ch       amqpPublisher
	exchange string
	timeout  time.Duration
	logger   *log.Logger

	queue     chan amqp.Publishing
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// DialAMQP connects to url and declares exchange as a durable fanout.
func DialAMQP(url, exchange string, timeout time.Duration, logger *log.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	a := newAMQP(ch, exchange, timeout, logger)
	a.conn = conn
	return a, nil
}

func newAMQP(ch amqpPublisher, exchange string, timeout time.Duration, logger *log.Logger) *AMQP {
	if logger == nil {
		logger = log.Default()
	}
	a := &AMQP{
		ch:       ch,
		exchange: exchange,
		timeout:  timeout,
		logger:   logger,
		queue:    make(chan amqp.Publishing, amqpQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go a.run()
	return a
}

// Broadcast queues f without waiting for the broker. A full queue drops
// the fix.
func (a *AMQP) Broadcast(f gps.Fix) {
	body, err := json.Marshal(f)
	if err != nil {
		a.logger.Printf("amqp: marshal error: %v", err)
		return
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
		AppId:       f.DeviceID,
		Body:        body,
	}
	select {
	case a.queue <- msg:
	default:
		a.logger.Printf("amqp: queue full, fix from %s not published", f.DeviceID)
	}
}

func (a *AMQP) run() {
	defer close(a.done)
	for {
		select {
		case <-a.quit:
			return
		case msg := <-a.queue:
			select {
			case <-a.quit:
				return
			default:
			}
			a.publish(msg)
		}
	}
}

func (a *AMQP) publish(msg amqp.Publishing) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.ch.PublishWithContext(ctx, a.exchange, "", false, false, msg); err != nil {
		a.logger.Printf("amqp: publish to %s: %v", a.exchange, err)
	}
}

// Close stops the publisher goroutine, discarding anything still queued,
// then closes the connection.
func (a *AMQP) Close() error {
	a.closeOnce.Do(func() { close(a.quit) })
	<-a.done
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
