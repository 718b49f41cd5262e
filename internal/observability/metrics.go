// Package observability bundles the Prometheus metrics and the
// OpenTelemetry tracing bootstrap for the simulation engine.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimulationCollector gathers engine-level Prometheus metrics. It
// implements the engine's MetricsRecorder interface.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	RunsStarted prometheus.Counter
	RunsEnded   *prometheus.CounterVec

	Paths *prometheus.CounterVec

	BatchDuration prometheus.Histogram

	SceneWalls     prometheus.Gauge
	SceneCorners   prometheus.Gauge
	SceneReceivers prometheus.Gauge
	RunProgress    prometheus.Gauge
}

// NewSimulationCollector registers the engine metrics against the
// provided registerer, defaulting to the global Prometheus registry
// when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	started, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_runs_started_total",
		Help: "Total number of simulation runs launched.",
	}), "simulation_runs_started_total")
	if err != nil {
		return nil, err
	}

	ended := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_ended_total",
		Help: "Total number of simulation runs that drained, labeled by outcome.",
	}, []string{"outcome"})
	ended, err = registerCounterVec(reg, ended, "simulation_runs_ended_total")
	if err != nil {
		return nil, err
	}

	paths := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_paths_total",
		Help: "Total number of computed ray paths, labeled by kind.",
	}, []string{"kind"})
	paths, err = registerCounterVec(reg, paths, "simulation_paths_total")
	if err != nil {
		return nil, err
	}

	batch, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_batch_duration_seconds",
		Help:    "Wall-clock duration of one receiver batch.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}), "simulation_batch_duration_seconds")
	if err != nil {
		return nil, err
	}

	walls, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scene_walls",
		Help: "Number of walls derived for the current run.",
	}), "scene_walls")
	if err != nil {
		return nil, err
	}
	corners, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scene_corners",
		Help: "Number of corners derived for the current run.",
	}), "scene_corners")
	if err != nil {
		return nil, err
	}
	receivers, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scene_receivers",
		Help: "Number of receivers in the current run.",
	}), "scene_receivers")
	if err != nil {
		return nil, err
	}
	progress, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_progress",
		Help: "Progress fraction of the current run, 0 to 1.",
	}), "simulation_progress")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:       gatherer,
		RunsStarted:    started,
		RunsEnded:      ended,
		Paths:          paths,
		BatchDuration:  batch,
		SceneWalls:     walls,
		SceneCorners:   corners,
		SceneReceivers: receivers,
		RunProgress:    progress,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RunStarted implements the engine recorder interface.
func (c *SimulationCollector) RunStarted() {
	if c == nil {
		return
	}
	c.RunsStarted.Inc()
}

// RunEnded implements the engine recorder interface.
func (c *SimulationCollector) RunEnded(outcome string) {
	if c == nil {
		return
	}
	c.RunsEnded.WithLabelValues(outcome).Inc()
}

// SetGeometryCounts implements the engine recorder interface.
func (c *SimulationCollector) SetGeometryCounts(walls, corners, receivers int) {
	if c == nil {
		return
	}
	c.SceneWalls.Set(float64(walls))
	c.SceneCorners.Set(float64(corners))
	c.SceneReceivers.Set(float64(receivers))
}

// SetProgress implements the engine recorder interface.
func (c *SimulationCollector) SetProgress(fraction float64) {
	if c == nil {
		return
	}
	c.RunProgress.Set(fraction)
}

// ObserveBatchSeconds implements the engine recorder interface.
func (c *SimulationCollector) ObserveBatchSeconds(seconds float64) {
	if c == nil {
		return
	}
	c.BatchDuration.Observe(seconds)
}

// AddPathCounts implements the engine recorder interface.
func (c *SimulationCollector) AddPathCounts(los, reflections, ground, diffraction int) {
	if c == nil {
		return
	}
	c.Paths.WithLabelValues("los").Add(float64(los))
	c.Paths.WithLabelValues("reflection").Add(float64(reflections))
	c.Paths.WithLabelValues("ground").Add(float64(ground))
	c.Paths.WithLabelValues("diffraction").Add(float64(diffraction))
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
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
