package commandbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const defaultPublishTimeout = 5 * time.Second

// Errors returned by the MQTT bus.
var (
	// ErrNotConnected indicates the MQTT client lost its broker connection
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrPublishFailed indicates the broker rejected or timed out a publish
	ErrPublishFailed = errors.New("mqtt publish failed")
)

// MQTTBus implements Bus on an MQTT broker, for deployments that want
// commands on MQTT directly instead of relaying them out of Redis. Channel
// names are mapped to topics by replacing ":" with "/", so
// bridge:u1:d4:onoff becomes bridge/u1/d4/onoff.
type MQTTBus struct {
	client mqtt.Client
	qos    byte
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
}

// NewMQTTBus connects to the broker and returns a bus publishing on it.
func NewMQTTBus(cfg MQTTConfig) (*MQTTBus, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultPublishTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultPublishTimeout) {
		return nil, fmt.Errorf("%w: connect timeout after %v", ErrNotConnected, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker: %w", err)
	}

	return &MQTTBus{client: client, qos: cfg.QoS}, nil
}

func (b *MQTTBus) Publish(ctx context.Context, channel, value string) error {
	if !b.client.IsConnected() {
		return ErrNotConnected
	}

	token := b.client.Publish(topicForChannel(channel), b.qos, false, []byte(value))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func (b *MQTTBus) CheckHealth(ctx context.Context) error {
	if !b.client.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight publishes to finish.
func (b *MQTTBus) Close() {
	b.client.Disconnect(uint(defaultPublishTimeout.Milliseconds()))
}

// topicForChannel maps a bus channel name to an MQTT topic.
func topicForChannel(channel string) string {
	return strings.ReplaceAll(channel, ":", "/")
}
