package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestServiceConfigWithDefaults(t *testing.T) {
	c := ServiceConfig{ListenAddress: "loop-a"}.WithDefaults()
	if c.TickInterval != 200*time.Millisecond {
		t.Fatalf("TickInterval = %v, want default", c.TickInterval)
	}
	if c.InboxCapacity != 4096 {
		t.Fatalf("InboxCapacity = %d, want default", c.InboxCapacity)
	}
}

func TestServiceConfigValidateRequiresListenAddress(t *testing.T) {
	if err := (ServiceConfig{}).Validate(); err == nil {
		t.Fatalf("expected an error for a missing listen_address")
	}
	if err := (ServiceConfig{ListenAddress: "loop-a"}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadParsesYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plumcast.yaml")
	body := `
listen_address: loop-a
contacts:
  - loop-b
membership:
  active_view_size: 4
  shuffle_interval: 2s
broadcast:
  first_graft_timeout: 50ms
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddress != "loop-a" {
		t.Fatalf("ListenAddress = %q", cfg.ListenAddress)
	}
	if len(cfg.Contacts) != 1 || cfg.Contacts[0] != "loop-b" {
		t.Fatalf("Contacts = %v", cfg.Contacts)
	}
	if cfg.Membership.ActiveViewSize != 4 {
		t.Fatalf("Membership.ActiveViewSize = %d", cfg.Membership.ActiveViewSize)
	}
	if cfg.Membership.ShuffleInterval != 2*time.Second {
		t.Fatalf("Membership.ShuffleInterval = %v", cfg.Membership.ShuffleInterval)
	}
	if cfg.Broadcast.FirstGraftTimeout != 50*time.Millisecond {
		t.Fatalf("Broadcast.FirstGraftTimeout = %v", cfg.Broadcast.FirstGraftTimeout)
	}
	if cfg.TickInterval != 200*time.Millisecond {
		t.Fatalf("TickInterval = %v, want default applied after load", cfg.TickInterval)
	}
}

func TestLoadRejectsMissingListenAddress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plumcast.yaml")
	if err := os.WriteFile(path, []byte("tick_interval: 1s\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject a config missing listen_address")
	}
}

func TestLoadReportsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
