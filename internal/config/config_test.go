package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() invalid: %v", err)
	}
}

func TestLoadTrimsTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /var/lib/rrd/\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/rrd" {
		t.Errorf("DataDir = %q, want /var/lib/rrd (trailing slash stripped)", cfg.DataDir)
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlSrc := "data_dir: /data\ncache:\n  timeout_sec: 30\n"
	if err := os.WriteFile(path, []byte(yamlSrc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TimeoutSec != 30 {
		t.Errorf("Cache.TimeoutSec = %d, want 30", cfg.Cache.TimeoutSec)
	}
	if cfg.Create.RRARows != DefaultConfig().Create.RRARows {
		t.Errorf("Create.RRARows = %d, want default preserved", cfg.Create.RRARows)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() on a missing file returned no error")
	}
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with empty data_dir returned no error")
	}
}

func TestValidateRejectsMisorderedBackpressureThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backpressure.Thresholds.Warning = 100
	cfg.Backpressure.Thresholds.Critical = 50
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with warning >= critical returned no error")
	}
}

func TestValidateSkipsDisabledBackpressure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backpressure.Enabled = false
	cfg.Backpressure.Thresholds = BackpressureThresholds{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() with disabled backpressure = %v, want nil", err)
	}
}

func TestValidatePollerRequiresTargetsWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Poller.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with poller enabled and no targets returned no error")
	}

	cfg.Poller.Targets = []PollerTarget{{
		Host: "switch1", OID: ".1.3.6.1.2.1.2.2.1.10.1",
		Plugin: "if_octets", Type: "if_octets", IntervalSec: 10,
	}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() with a valid target = %v, want nil", err)
	}
}

func TestAuditDirDefaultsUnderDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"
	if got, want := cfg.AuditDir(), "/data/audit"; got != want {
		t.Errorf("AuditDir() = %q, want %q", got, want)
	}
	cfg.Audit.Dir = "/custom/audit"
	if got, want := cfg.AuditDir(), "/custom/audit"; got != want {
		t.Errorf("AuditDir() = %q, want %q", got, want)
	}
}

func TestBackpressureCooldownDefaultIsSet(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Backpressure.Recovery.Cooldown != time.Second {
		t.Errorf("default cooldown = %v, want 1s", cfg.Backpressure.Recovery.Cooldown)
	}
}
