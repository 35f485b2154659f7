package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	// connectTimeout bounds the initial broker connection.
	connectTimeout = 10 * time.Second
	// publishTimeout bounds one publish.
	publishTimeout = 5 * time.Second
	// disconnectQuiesce is how long Close waits for in-flight messages, in milliseconds.
	disconnectQuiesce = 1000
)

var (
	errConnectTimeout = errors.New("mqtt connection timeout")
	errPublishTimeout = errors.New("mqtt publish timeout")
)

// MQTTPublisher publishes events to a broker topic.
type MQTTPublisher struct {
	client paho.Client
	topic  string
}

// NewMQTTPublisher connects to broker.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(false)

	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errConnectTimeout
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTPublisher{
		client: client,
		topic:  topic,
	}, nil
}

// Notify publishes the event with QoS 1 so screens do not miss a bell.
func (p *MQTTPublisher) Notify(_ context.Context, event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)

	return nil
}
