// Package poller is a reference producer for the write path: it polls a
// fixed list of SNMP OIDs on their own per-target schedules and forwards
// each result as a Sample through the same Write contract any other
// producer would use. It never reaches into the cache, queue or writer
// packages directly.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/xtxerr/rrdcached/internal/config"
	"github.com/xtxerr/rrdcached/internal/logging"
	"github.com/xtxerr/rrdcached/internal/types"
)

var pollLog = logging.Component("poller")

// Writer is the subset of core.Core the poller depends on.
type Writer interface {
	Write(schema *types.TypeSchema, sample *types.Sample) error
}

// PauseSource lets the poller back off from issuing new writes while the
// dispatch queue is critically backed up. A nil PauseSource never pauses.
type PauseSource interface {
	ShouldPausePoller() bool
}

// Poller runs SNMP polls against a fixed target list, each on its own
// ticker, and forwards results to a Writer.
type Poller struct {
	targets []config.PollerTarget
	writer  Writer
	pause   PauseSource

	defaultTimeoutMs uint32
	defaultRetries   uint32
}

// New builds a Poller from the config's target list.
func New(cfg config.PollerConfig, writer Writer, pause PauseSource) *Poller {
	return &Poller{
		targets:          cfg.Targets,
		writer:           writer,
		pause:            pause,
		defaultTimeoutMs: 2000,
		defaultRetries:   1,
	}
}

// Run polls every target on its own ticker until ctx is cancelled, then
// waits for every target's goroutine to exit before returning.
func (p *Poller) Run(ctx context.Context) {
	if len(p.targets) == 0 {
		return
	}

	done := make(chan struct{}, len(p.targets))
	for _, target := range p.targets {
		go p.runTarget(ctx, target, done)
	}
	for range p.targets {
		<-done
	}
}

func (p *Poller) runTarget(ctx context.Context, target config.PollerTarget, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	interval := time.Duration(target.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx, target)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, target config.PollerTarget) {
	if p.pause != nil && p.pause.ShouldPausePoller() {
		pollLog.Warn("skipping poll, dispatch queue backpressure critical", "host", target.Host, "oid", target.OID)
		return
	}

	sample, schema, err := p.poll(ctx, target)
	if err != nil {
		pollLog.Warn("snmp poll failed", "host", target.Host, "oid", target.OID, "error", err)
		return
	}

	if err := p.writer.Write(schema, sample); err != nil {
		pollLog.Warn("write failed", "host", target.Host, "plugin", target.Plugin, "error", err)
	}
}

// snmpClient is the subset of *gosnmp.GoSNMP this package depends on, so
// tests can substitute a fake without a real network.
type snmpClient interface {
	Connect() error
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

type gosnmpClient struct{ *gosnmp.GoSNMP }

func (c *gosnmpClient) Close() error { return c.Conn.Close() }

// newClient is overridden in tests to avoid a real network dependency.
var newClient = func(target config.PollerTarget, timeoutMs, retries uint32) snmpClient {
	return &gosnmpClient{&gosnmp.GoSNMP{
		Target:    target.Host,
		Port:      161,
		Community: target.Community,
		Version:   gosnmp.Version2c,
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
		Retries:   int(retries),
	}}
}

func (p *Poller) poll(ctx context.Context, target config.PollerTarget) (*types.Sample, *types.TypeSchema, error) {
	if target.Host == "" || target.OID == "" {
		return nil, nil, fmt.Errorf("target missing host or OID")
	}
	if target.Community == "" {
		return nil, nil, fmt.Errorf("snmp v2c requires a community string (refusing to use insecure default)")
	}

	client := newClient(target, p.defaultTimeoutMs, p.defaultRetries)
	if err := client.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	pdu, err := client.Get([]string{target.OID})
	if err != nil {
		return nil, nil, fmt.Errorf("get: %w", err)
	}
	if len(pdu.Variables) == 0 {
		return nil, nil, fmt.Errorf("no variables returned")
	}

	value, kind, err := decodeVariable(pdu.Variables[0])
	if err != nil {
		return nil, nil, err
	}

	schema := &types.TypeSchema{
		Name:        target.Type,
		DataSources: []types.DataSource{{Name: "value", Kind: kind}},
	}
	sample := &types.Sample{
		Time:           time.Now(),
		Host:           target.Host,
		Plugin:         target.Plugin,
		PluginInstance: target.PluginInstance,
		Type:           target.Type,
		TypeInstance:   target.TypeInstance,
		Values:         []types.Value{value},
	}
	return sample, schema, nil
}

func decodeVariable(v gosnmp.SnmpPDU) (types.Value, types.ValueKind, error) {
	switch v.Type {
	case gosnmp.Counter32, gosnmp.Counter64, gosnmp.Uinteger32:
		n := gosnmp.ToBigInt(v.Value).Uint64()
		return types.Value{Kind: types.Counter, Counter: n}, types.Counter, nil

	case gosnmp.Integer:
		n, ok := v.Value.(int)
		if !ok {
			return types.Value{}, 0, fmt.Errorf("unexpected integer payload type %T", v.Value)
		}
		return types.Value{Kind: types.Gauge, Gauge: float64(n)}, types.Gauge, nil

	case gosnmp.TimeTicks:
		n, ok := v.Value.(uint32)
		if !ok {
			return types.Value{}, 0, fmt.Errorf("unexpected timeticks payload type %T", v.Value)
		}
		return types.Value{Kind: types.Gauge, Gauge: float64(n)}, types.Gauge, nil

	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
		return types.Value{}, 0, fmt.Errorf("oid not found")

	default:
		return types.Value{}, 0, fmt.Errorf("unsupported snmp type: %v", v.Type)
	}
}
