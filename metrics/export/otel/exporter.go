package otel

import (
	"context"
	"errors"
	"fmt"

	goBiometric "github.com/MrEthical07/goBiometric"
	"github.com/MrEthical07/goBiometric/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goBiometric.MetricsSnapshot
	AuditDropped() uint64
}

// observation reports one series from a snapshot taken at collect time.
// All observations in a collection see the same snapshot.
type observation func(snap goBiometric.MetricsSnapshot, dropped uint64, obs metric.Observer)

// OTelExporter registers the broker's counters and histogram buckets as
// observable instruments; the meter pulls fresh values on every collection.
type OTelExporter struct {
	registration metric.Registration
}

// NewOTelExporter wires the exporter to a [goBiometric.Broker].
func NewOTelExporter(meter metric.Meter, broker *goBiometric.Broker) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, broker)
}

// NewOTelExporterFromSource wires the exporter to a custom metrics source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	ib := instrumentBuilder{meter: meter}
	for _, def := range internaldefs.CounterDefs {
		ib.counter(def)
	}
	for _, def := range internaldefs.HistogramDefs {
		ib.histogram(def)
	}
	ib.auditDropped()
	if ib.err != nil {
		return nil, ib.err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		snap := source.MetricsSnapshot()
		dropped := source.AuditDropped()
		for _, report := range ib.observations {
			report(snap, dropped, obs)
		}
		return nil
	}, ib.observables...)
	if err != nil {
		return nil, fmt.Errorf("register metrics callback: %w", err)
	}

	return &OTelExporter{registration: registration}, nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// instrumentBuilder accumulates instruments and their observation closures,
// carrying the first creation error so call sites stay unconditional.
type instrumentBuilder struct {
	meter        metric.Meter
	observables  []metric.Observable
	observations []observation
	err          error
}

func (ib *instrumentBuilder) counter(def internaldefs.CounterDef) {
	if ib.err != nil {
		return
	}
	ins, err := ib.meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
	if err != nil {
		ib.err = fmt.Errorf("observable counter %s: %w", def.Name, err)
		return
	}
	ib.observables = append(ib.observables, ins)
	ib.observations = append(ib.observations, func(snap goBiometric.MetricsSnapshot, _ uint64, obs metric.Observer) {
		obs.ObserveInt64(ins, int64(snap.Counters[def.ID]))
	})
}

func (ib *instrumentBuilder) histogram(def internaldefs.HistogramDef) {
	if ib.err != nil {
		return
	}
	buckets := make([]metric.Int64ObservableGauge, len(internaldefs.HistogramBoundSuffix))
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := ib.meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			ib.err = fmt.Errorf("histogram bucket gauge %s: %w", name, err)
			return
		}
		buckets[i] = ins
		ib.observables = append(ib.observables, ins)
	}
	count, err := ib.meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
	if err != nil {
		ib.err = fmt.Errorf("histogram count gauge %s_count: %w", def.Name, err)
		return
	}
	ib.observables = append(ib.observables, count)
	ib.observations = append(ib.observations, func(snap goBiometric.MetricsSnapshot, _ uint64, obs metric.Observer) {
		raw := snap.Histograms[def.ID]
		var running uint64
		for i, ins := range buckets {
			if i < len(raw) {
				running += raw[i]
			}
			obs.ObserveInt64(ins, int64(running))
		}
		obs.ObserveInt64(count, int64(running))
	})
}

func (ib *instrumentBuilder) auditDropped() {
	if ib.err != nil {
		return
	}
	ins, err := ib.meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		ib.err = fmt.Errorf("observable counter %s: %w", internaldefs.AuditDroppedName, err)
		return
	}
	ib.observables = append(ib.observables, ins)
	ib.observations = append(ib.observations, func(_ goBiometric.MetricsSnapshot, dropped uint64, obs metric.Observer) {
		obs.ObserveInt64(ins, int64(dropped))
	})
}
