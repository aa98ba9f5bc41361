package types

import (
	"testing"
	"time"
)

func TestSampleKeyWithInstance(t *testing.T) {
	s := Sample{
		Host:         "h",
		Plugin:       "cpu",
		Type:         "cpu",
		TypeInstance: "0",
	}

	expected := "h/cpu/cpu-0"
	if s.Key() != expected {
		t.Errorf("expected %s, got %s", expected, s.Key())
	}
}

func TestSampleKeyWithoutInstance(t *testing.T) {
	s := Sample{
		Host:   "h",
		Plugin: "cpu",
		Type:   "cpu",
	}

	expected := "h/cpu/cpu"
	if s.Key() != expected {
		t.Errorf("expected %s, got %s", expected, s.Key())
	}
}

func TestSampleKeyPluginInstance(t *testing.T) {
	s := Sample{
		Host:           "h",
		Plugin:         "cpu",
		PluginInstance: "0",
		Type:           "cpu",
	}

	expected := "h/cpu-0/cpu"
	if s.Key() != expected {
		t.Errorf("expected %s, got %s", expected, s.Key())
	}
}

func TestSampleUnixTime(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	s := Sample{Time: now}

	if s.UnixTime() != now.Unix() {
		t.Errorf("expected %d, got %d", now.Unix(), s.UnixTime())
	}
}

func TestValueKindString(t *testing.T) {
	tests := []struct {
		kind     ValueKind
		expected string
	}{
		{Gauge, "gauge"},
		{Counter, "counter"},
		{Derive, "derive"},
		{Absolute, "absolute"},
		{Text, "text"},
	}

	for _, tt := range tests {
		if tt.kind.String() != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, tt.kind.String())
		}
	}
}

func TestTypeSchemaLen(t *testing.T) {
	schema := TypeSchema{
		Name: "cpu",
		DataSources: []DataSource{
			{Name: "value", Kind: Gauge},
		},
	}

	if schema.Len() != 1 {
		t.Errorf("expected 1, got %d", schema.Len())
	}
}
