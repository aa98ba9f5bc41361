package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors, joining every problem
// found rather than stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	if err := c.Create.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("create: %w", err))
	}

	if err := c.Backpressure.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backpressure: %w", err))
	}

	if err := c.Audit.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("audit: %w", err))
	}

	if err := c.Poller.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("poller: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the RRD creation defaults.
func (c *CreateConfig) Validate() error {
	var errs []error

	if c.StepSize <= 0 {
		errs = append(errs, errors.New("step_size must be positive"))
	}
	if c.HeartBeat <= 0 {
		errs = append(errs, errors.New("heartbeat must be positive"))
	}
	if c.RRARows <= 0 {
		errs = append(errs, errors.New("rra_rows must be positive"))
	}
	if len(c.RRATimespan) == 0 {
		errs = append(errs, errors.New("rra_timespans must name at least one archive"))
	}
	if c.XFF < 0 || c.XFF >= 1 {
		errs = append(errs, errors.New("xff must be in [0, 1)"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the backpressure configuration.
func (c *BackpressureConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	t := c.Thresholds

	if t.Warning <= 0 {
		errs = append(errs, errors.New("thresholds.warning must be positive"))
	}
	if t.Warning >= t.Critical {
		errs = append(errs, errors.New("thresholds.warning must be < thresholds.critical"))
	}
	if t.Critical >= t.Emergency {
		errs = append(errs, errors.New("thresholds.critical must be < thresholds.emergency"))
	}
	if c.Recovery.Hysteresis < 0 {
		errs = append(errs, errors.New("recovery.hysteresis must be non-negative"))
	}
	if c.Recovery.Cooldown <= 0 {
		errs = append(errs, errors.New("recovery.cooldown must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the audit trail configuration.
func (c *AuditConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.FlushInterval <= 0 {
		errs = append(errs, errors.New("flush_interval must be positive"))
	}
	if c.RingCapacity <= 0 {
		errs = append(errs, errors.New("ring_capacity must be positive"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the reference poller configuration.
func (c *PollerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("poller enabled with no targets configured"))
	}
	for i, target := range c.Targets {
		if target.Host == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: host is required", i))
		}
		if target.OID == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: oid is required", i))
		}
		if target.Plugin == "" || target.Type == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: plugin and type are required", i))
		}
		if target.IntervalSec <= 0 {
			errs = append(errs, fmt.Errorf("targets[%d]: interval_sec must be positive", i))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
