// Package mqtt mirrors the shared contacts node onto an MQTT broker.
//
// Each field of a node is its own retained topic "{prefix}/{path}/{key}",
// so a subscriber to "{prefix}/{path}/+" receives the whole node. Setting a
// field publishes the value retained; deleting it publishes an empty retained
// payload, which clears the retained message on the broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mmynk/emergencyclick/internal/storage"
)

// Compile-time interface check.
var _ storage.SharedTable = (*Table)(nil)

const (
	// DefaultTopicPrefix is the default MQTT topic prefix for shared nodes.
	DefaultTopicPrefix = "emergencyclick"
)

// Config holds the configuration for an MQTT-backed shared table.
type Config struct {
	// Broker is the MQTT broker URL (e.g., "tcp://broker.example.com:1883").
	Broker string
	// Username for MQTT authentication. Leave empty if not required.
	Username string
	// Password for MQTT authentication. Leave empty if not required.
	Password string
	// UseTLS enables TLS for the MQTT connection.
	UseTLS bool
	// ClientID is the MQTT client identifier. If empty, a random one is generated.
	ClientID string
	// TopicPrefix is the MQTT topic prefix (default: "emergencyclick").
	TopicPrefix string
	// QoS is the publish quality of service (default 1).
	QoS byte
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Table implements storage.SharedTable over retained MQTT messages.
type Table struct {
	cfg    Config
	client paho.Client
	log    *slog.Logger
	mu     sync.RWMutex
}

// New creates a new table with the given configuration. Call Start to connect.
func New(cfg Config) *Table {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Table{
		cfg: cfg,
		log: cfg.Logger.WithGroup("mqtt"),
	}
}

// Start connects to the MQTT broker.
func (t *Table) Start(ctx context.Context) error {
	if t.cfg.Broker == "" {
		return errors.New("broker URL is required")
	}

	clientID := t.cfg.ClientID
	if clientID == "" {
		clientID = "emergencyclick-" + randomString(16)
	}

	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetOnConnectHandler(t.onConnected).
		SetConnectionLostHandler(t.onConnectionLost)

	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
	}
	if t.cfg.Password != "" {
		opts.SetPassword(t.cfg.Password)
	}
	if t.cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})
	}

	t.client = paho.NewClient(opts)

	token := t.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("connecting to broker: %w", ctx.Err())
	}
	if token.Error() != nil {
		return fmt.Errorf("connecting to broker: %w", token.Error())
	}
	return nil
}

// Stop disconnects from the MQTT broker.
func (t *Table) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		t.client.Disconnect(1000)
	}
	return nil
}

// IsConnected returns true if the table is connected to the broker. It asks
// the client directly since OnConnect may run after Start returns.
func (t *Table) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client != nil && t.client.IsConnected()
}

// UpdateFields publishes every field as a retained message. Fields are sent
// in key order and the call returns at the first failed publish; earlier
// fields stay published.
func (t *Table) UpdateFields(ctx context.Context, path string, fields map[string]*string) error {
	if !t.IsConnected() {
		return errors.New("not connected")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		payload := ""
		if v := fields[key]; v != nil {
			payload = *v
		}
		topic := t.topic(path, key)

		token := t.client.Publish(topic, t.cfg.QoS, true, payload)
		select {
		case <-token.Done():
		case <-ctx.Done():
			return fmt.Errorf("publishing %s: %w", topic, ctx.Err())
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publishing %s: %w", topic, err)
		}
		t.log.Debug("shared field published", "topic", topic, "deleted", fields[key] == nil)
	}
	return nil
}

var topicEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "+", "%2B", "#", "%23")

// topic maps a node path and field key to a topic. The key is escaped so
// it stays one topic level and never acts as a wildcard.
func (t *Table) topic(path, key string) string {
	return t.cfg.TopicPrefix + "/" + strings.Trim(path, "/") + "/" + topicEscaper.Replace(key)
}

func (t *Table) onConnected(_ paho.Client) {
	t.log.Info("connected to MQTT broker", "broker", t.cfg.Broker)
}

func (t *Table) onConnectionLost(_ paho.Client, err error) {
	t.log.Error("MQTT connection lost", "error", err)
}

func randomString(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
