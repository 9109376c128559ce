package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stomp-tui.yaml")

	yaml := `
connection:
  url: "wss://chat.example.com/ws"
  token: "abc"
  heartbeat_incoming: 10s
defaults:
  send_destination: "/app/other"
ui:
  confirm_disconnect: false
log:
  file: "/tmp/stomp.log"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Connection.URL != "wss://chat.example.com/ws" {
		t.Errorf("Connection.URL = %q", cfg.Connection.URL)
	}
	if cfg.Connection.Token != "abc" {
		t.Errorf("Connection.Token = %q, want abc", cfg.Connection.Token)
	}
	if cfg.Connection.HeartbeatIncoming != 10*time.Second {
		t.Errorf("HeartbeatIncoming = %v, want 10s", cfg.Connection.HeartbeatIncoming)
	}
	if cfg.Defaults.SendDestination != "/app/other" {
		t.Errorf("SendDestination = %q", cfg.Defaults.SendDestination)
	}
	if cfg.UI.ConfirmDisconnect {
		t.Error("ConfirmDisconnect = true, want false")
	}
	if cfg.Log.File != "/tmp/stomp.log" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Connection.HeartbeatOutgoing != DefaultHeartbeat {
		t.Errorf("HeartbeatOutgoing = %v, want default", cfg.Connection.HeartbeatOutgoing)
	}
	if cfg.Defaults.SubscribeDestination != DefaultSubscribe {
		t.Errorf("SubscribeDestination = %q, want default", cfg.Defaults.SubscribeDestination)
	}
	if cfg.Defaults.Body != DefaultBody {
		t.Errorf("Body = %q, want default", cfg.Defaults.Body)
	}
	if cfg.Connection.DisconnectGrace != DefaultDisconnectGrace {
		t.Errorf("DisconnectGrace = %v, want default", cfg.Connection.DisconnectGrace)
	}
}

func TestLoadZeroGraceRestored(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("connection:\n  disconnect_grace: 0s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Connection.DisconnectGrace != DefaultDisconnectGrace {
		t.Errorf("DisconnectGrace = %v, want %v", cfg.Connection.DisconnectGrace, DefaultDisconnectGrace)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/stomp-tui.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/stomp-tui.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}
	if cfg.Connection.URL != DefaultURL {
		t.Errorf("Connection.URL = %q, want default %q", cfg.Connection.URL, DefaultURL)
	}
	if !cfg.UI.ConfirmDisconnect {
		t.Error("ConfirmDisconnect = false, want default true")
	}
	if cfg.Log.MetricsInterval != DefaultMetricsInterval {
		t.Errorf("MetricsInterval = %v, want default", cfg.Log.MetricsInterval)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() on invalid YAML should return error")
	}
	if _, err := LoadOrDefault(cfgPath); err == nil {
		t.Fatal("LoadOrDefault() on invalid YAML should return error")
	}
}
