package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/power/model"
)

// EngineCounters is the slice of the engine the collector reads after a turn.
type EngineCounters interface {
	Generation() uint64
	Drifts() uint64
	HookFailures() uint64
	DroppedCycles() uint64
}

// PowerCollector bundles Prometheus metrics for the power simulation.
type PowerCollector struct {
	gatherer prometheus.Gatherer

	Turns         prometheus.Counter
	Rebuilds      prometheus.Counter
	Drifts        prometheus.Counter
	HookFailures  prometheus.Counter
	DroppedCycles prometheus.Counter
	TurnDurations prometheus.Histogram

	Turn            prometheus.Gauge
	Networks        prometheus.Gauge
	TotalCapacity   prometheus.Gauge
	TotalStored     prometheus.Gauge
	ReservoirStored prometheus.Gauge

	NetworkStored  *prometheus.GaugeVec
	NetworkDemand  *prometheus.GaugeVec
	OfflineDevices *prometheus.GaugeVec

	mu   sync.Mutex
	last struct{ generation, drifts, hookFailures, dropped uint64 }
	ids  map[string]struct{}
}

// NewPowerCollector registers power metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPowerCollector(reg prometheus.Registerer) (*PowerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &PowerCollector{gatherer: gatherer, ids: map[string]struct{}{}}
	var err error
	counter := func(name, help string) prometheus.Counter {
		if err != nil {
			return nil
		}
		var out prometheus.Counter
		out, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help}), name)
		return out
	}
	gauge := func(name, help string) prometheus.Gauge {
		if err != nil {
			return nil
		}
		var out prometheus.Gauge
		out, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}), name)
		return out
	}
	gaugeVec := func(name, help, label string) *prometheus.GaugeVec {
		if err != nil {
			return nil
		}
		var out *prometheus.GaugeVec
		out, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{label}), name)
		return out
	}

	c.Turns = counter("power_turns_total", "Turns advanced.")
	c.Rebuilds = counter("power_rebuilds_total", "Full graph rebuilds.")
	c.Drifts = counter("power_drift_rebuilds_total", "Rebuilds triggered by the registry signature check.")
	c.HookFailures = counter("power_hook_failures_total", "Observer hook errors and panics swallowed by notify.")
	c.DroppedCycles = counter("power_notify_dropped_total", "Follow-up notify cycles dropped at the cycle bound.")
	c.Turn = gauge("power_turn", "Current turn number.")
	c.Networks = gauge("power_networks", "Published networks.")
	c.TotalCapacity = gauge("power_total_capacity", "Reservoir capacity plus all network storage capacity.")
	c.TotalStored = gauge("power_total_stored", "Reservoir energy plus all network stored energy.")
	c.ReservoirStored = gauge("power_reservoir_stored", "Energy held by the baseline reservoir.")
	c.NetworkStored = gaugeVec("power_network_stored_energy", "Stored energy per network.", "network")
	c.NetworkDemand = gaugeVec("power_network_demand", "Last-turn demand per network.", "network")
	c.OfflineDevices = gaugeVec("power_offline_devices", "Evaluated devices that are offline, by reason.", "reason")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "power_turn_duration_seconds",
		Help:    "Wall time of AdvanceTurn.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	c.TurnDurations, err = registerHistogram(reg, durations, "power_turn_duration_seconds")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveTurn records one turn report and how long it took.
func (c *PowerCollector) ObserveTurn(r power.TurnReport, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Turns.Inc()
	c.TurnDurations.Observe(elapsed.Seconds())
	c.SetStats(r.Stats)

	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(r.Networks))
	for _, n := range r.Networks {
		id := strconv.Itoa(n.ID)
		seen[id] = struct{}{}
		c.NetworkStored.WithLabelValues(id).Set(float64(n.StoredEnergy))
		c.NetworkDemand.WithLabelValues(id).Set(float64(n.Demand))
	}
	for id := range c.ids {
		if _, ok := seen[id]; !ok {
			c.NetworkStored.DeleteLabelValues(id)
			c.NetworkDemand.DeleteLabelValues(id)
		}
	}
	c.ids = seen
}

func (c *PowerCollector) SetStats(s power.Stats) {
	if c == nil {
		return
	}
	c.Turn.Set(float64(s.Turn))
	c.Networks.Set(float64(s.Networks))
	c.TotalCapacity.Set(float64(s.TotalCapacity))
	c.TotalStored.Set(float64(s.TotalStored))
	c.ReservoirStored.Set(float64(s.ReservoirStored))
}

// ObserveEngine folds the engine's cumulative counters into the Prometheus
// counters by delta.
func (c *PowerCollector) ObserveEngine(e EngineCounters) {
	if c == nil || e == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	add := func(ctr prometheus.Counter, prev *uint64, now uint64) {
		if now > *prev {
			ctr.Add(float64(now - *prev))
		}
		*prev = now
	}
	add(c.Rebuilds, &c.last.generation, e.Generation())
	add(c.Drifts, &c.last.drifts, e.Drifts())
	add(c.HookFailures, &c.last.hookFailures, e.HookFailures())
	add(c.DroppedCycles, &c.last.dropped, e.DroppedCycles())
}

// ObserveDevices counts offline devices by reason.
func (c *PowerCollector) ObserveDevices(devs []*model.Device) {
	if c == nil {
		return
	}
	counts := map[model.OfflineReason]int{
		model.ReasonNoFuel:        0,
		model.ReasonNoPowerSource: 0,
		model.ReasonNoPower:       0,
	}
	for _, d := range devs {
		if d.Evaluated && !d.Online && d.OfflineReason != model.ReasonNone {
			counts[d.OfflineReason]++
		}
	}
	for reason, n := range counts {
		c.OfflineDevices.WithLabelValues(string(reason)).Set(float64(n))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PowerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, ctr prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(ctr); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return ctr, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
