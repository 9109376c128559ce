package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultURL             = "http://localhost:8080/ws/chat"
	DefaultSubscribe       = "/user/queue/messages"
	DefaultSend            = "/app/chat.send"
	DefaultBody            = "{\n  \"receiverId\": 1,\n  \"content\": \"Hello world!\"\n}"
	DefaultLogFile         = "stomp-tui.log"
	DefaultHeartbeat       = 4 * time.Second
	DefaultDisconnectGrace = 500 * time.Millisecond
	DefaultMetricsInterval = 30 * time.Second
)

type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Defaults   FormDefaults     `yaml:"defaults"`
	UI         UIConfig         `yaml:"ui"`
	Log        LogConfig        `yaml:"log"`
}

type ConnectionConfig struct {
	URL               string        `yaml:"url"`
	Token             string        `yaml:"token"`
	HeartbeatIncoming time.Duration `yaml:"heartbeat_incoming"`
	HeartbeatOutgoing time.Duration `yaml:"heartbeat_outgoing"`
	DisconnectGrace   time.Duration `yaml:"disconnect_grace"`
}

// FormDefaults pre-fill the destination and body inputs.
type FormDefaults struct {
	SubscribeDestination string `yaml:"subscribe_destination"`
	SendDestination      string `yaml:"send_destination"`
	Body                 string `yaml:"body"`
}

type UIConfig struct {
	ConfirmDisconnect bool `yaml:"confirm_disconnect"`
}

type LogConfig struct {
	File            string        `yaml:"file"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			URL:               DefaultURL,
			HeartbeatIncoming: DefaultHeartbeat,
			HeartbeatOutgoing: DefaultHeartbeat,
			DisconnectGrace:   DefaultDisconnectGrace,
		},
		Defaults: FormDefaults{
			SubscribeDestination: DefaultSubscribe,
			SendDestination:      DefaultSend,
			Body:                 DefaultBody,
		},
		UI: UIConfig{
			ConfirmDisconnect: true,
		},
		Log: LogConfig{
			File:            DefaultLogFile,
			MetricsInterval: DefaultMetricsInterval,
		},
	}
}

// Load reads path over the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fill()
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// fill restores defaults that an explicit zero in the file would break.
func (c *Config) fill() {
	if c.Connection.DisconnectGrace <= 0 {
		c.Connection.DisconnectGrace = DefaultDisconnectGrace
	}
	if c.Connection.HeartbeatIncoming < 0 {
		c.Connection.HeartbeatIncoming = 0
	}
	if c.Connection.HeartbeatOutgoing < 0 {
		c.Connection.HeartbeatOutgoing = 0
	}
}
