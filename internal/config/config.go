// Package config loads server and client settings from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mmynk/emergencyclick/internal/registry"
)

// Backend names accepted by DOC_BACKEND and SHARED_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendMQTT     = "mqtt"
)

// DynamoDB holds the settings of the DynamoDB document store.
type DynamoDB struct {
	Table           string `env:"DYNAMODB_TABLE"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"AWS_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// MQTT holds the settings of the MQTT shared table.
type MQTT struct {
	Broker      string `env:"MQTT_BROKER"`
	Username    string `env:"MQTT_USERNAME"`
	Password    string `env:"MQTT_PASSWORD"`
	TopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"emergencyclick"`
	UseTLS      bool   `env:"MQTT_TLS"`
}

// Server is the configuration of cmd/server.
type Server struct {
	HTTPAddr      string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath        string        `env:"DB_PATH" envDefault:"./data/emergencyclick.db"`
	JWTSecret     string        `env:"JWT_SECRET,required"`
	JWTTTL        time.Duration `env:"JWT_TTL" envDefault:"24h"`
	DocBackend    string        `env:"DOC_BACKEND" envDefault:"sqlite"`
	SharedBackend string        `env:"SHARED_BACKEND" envDefault:"sqlite"`
	SharedPath    string        `env:"SHARED_PATH" envDefault:"202004/emails"`

	DynamoDB DynamoDB
	MQTT     MQTT
}

// Validate checks cross-field constraints env tags cannot express.
func (c Server) Validate() error {
	switch c.DocBackend {
	case BackendSQLite:
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return errors.New("DYNAMODB_TABLE is required with DOC_BACKEND=dynamodb")
		}
	default:
		return fmt.Errorf("unknown DOC_BACKEND %q", c.DocBackend)
	}

	switch c.SharedBackend {
	case BackendSQLite:
	case BackendMQTT:
		if c.MQTT.Broker == "" {
			return errors.New("MQTT_BROKER is required with SHARED_BACKEND=mqtt")
		}
	default:
		return fmt.Errorf("unknown SHARED_BACKEND %q", c.SharedBackend)
	}

	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

// Client is the configuration of the emergencyclick CLI.
type Client struct {
	Server        string `env:"EMERGENCYCLICK_SERVER" envDefault:"http://localhost:8080"`
	SessionFile   string `env:"EMERGENCYCLICK_SESSION"`
	SharedPath    string `env:"SHARED_PATH" envDefault:"202004/emails"`
	KeyStrategy   string `env:"KEY_STRATEGY" envDefault:"local-part"`
	SharedScope   string `env:"SHARED_SCOPE" envDefault:"global"`
	Compensate    bool   `env:"COMPENSATE"`
	InFlightGuard bool   `env:"INFLIGHT_GUARD"`
}

// RegistryConfig converts the registry options. Logger and metrics are left
// for the caller.
func (c Client) RegistryConfig() (registry.Config, error) {
	keys, err := registry.ParseKeyStrategy(c.KeyStrategy)
	if err != nil {
		return registry.Config{}, err
	}
	scope, err := registry.ParseSharedScope(c.SharedScope)
	if err != nil {
		return registry.Config{}, err
	}
	return registry.Config{
		SharedPath:    c.SharedPath,
		Scope:         scope,
		Keys:          keys,
		Compensate:    c.Compensate,
		InFlightGuard: c.InFlightGuard,
	}, nil
}

// LoadServer reads the server configuration. Files are .env files loaded
// first; missing files are skipped and real environment variables win.
func LoadServer(files ...string) (Server, error) {
	var cfg Server
	if err := load(&cfg, files); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// LoadClient reads the CLI configuration. An unset session file defaults
// to emergencyclick/session.yaml under the user config directory.
func LoadClient(files ...string) (Client, error) {
	var cfg Client
	if err := load(&cfg, files); err != nil {
		return Client{}, err
	}
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Client{}, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.SessionFile = filepath.Join(dir, "emergencyclick", "session.yaml")
	}
	if _, err := cfg.RegistryConfig(); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func load(target any, files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
