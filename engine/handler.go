// Package engine runs simulations: it freezes the scene geometry,
// partitions the receiver set into batches, traces every batch on a
// bounded worker pool and reports progress, completion and
// cancellation to registered listeners.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/signalsfoundry/radioplanner/core"
	"github.com/signalsfoundry/radioplanner/internal/logging"
	"github.com/signalsfoundry/radioplanner/scene"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BatchSize is the number of receivers per work unit. Cancellation is
// observed at unit granularity, so this also bounds the drain latency
// of a cancelled run.
const BatchSize = 100

// Handler orchestrates simulation runs over a scene.
type Handler struct {
	scene   *scene.Scene
	log     logging.Logger
	metrics MetricsRecorder

	// progressMu serializes unit-completion accounting and the
	// progress events derived from it, so emitted fractions are
	// strictly non-decreasing.
	progressMu sync.Mutex

	mu           sync.Mutex
	listeners    []Listener
	running      bool
	cancelling   bool
	completedRun bool
	pending      int
	initial      int
	lastProgress float64
	runReceivers []*core.Receiver
	runStats     core.PathStats
	runStart     time.Time
	runSpan      trace.Span
	done         chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetricsRecorder wires orchestrator measurements into a recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(h *Handler) { h.metrics = m }
}

// New builds a handler over the given scene.
func New(sc *scene.Scene, log logging.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logging.Noop()
	}

	closed := make(chan struct{})
	close(closed)

	h := &Handler{
		scene: sc,
		log:   log,
		done:  closed,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Scene returns the scene the handler runs against.
func (h *Handler) Scene() *scene.Scene { return h.scene }

// AddListener registers a lifecycle listener.
func (h *Handler) AddListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// IsRunning reports whether a run is in flight.
func (h *Handler) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// IsCancelling reports whether a cancellation is draining.
func (h *Handler) IsCancelling() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelling
}

// IsDone reports whether the last started run has fully drained.
func (h *Handler) IsDone() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completedRun && !h.running
}

// Done returns a channel closed when the current run drains. Before
// any run it is already closed.
func (h *Handler) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// RayPathCount returns the number of contributions the last run
// produced.
func (h *Handler) RayPathCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runStats.Total()
}

// PathStats returns the per-kind contribution counts of the last run.
func (h *Handler) PathStats() core.PathStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runStats
}

// StartSimulation launches a run over the given receivers inside the
// bounded simulation area. A nil emitters list selects the scene's
// emitter set. With reset true all previous contributions are
// discarded; with reset false and a singleton emitters list the run
// evaluates just that emitter on top of the existing results (the
// optimizer's incremental mode).
//
// Configuration problems fail fast: no goroutine starts, no event is
// emitted and the error describes the rejected parameter.
func (h *Handler) StartSimulation(ctx context.Context, receivers []*core.Receiver, area core.Rect, reset bool, emitters []*core.Emitter) error {
	cfg := h.scene.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if emitters == nil {
		emitters = h.scene.Emitters()
	}
	if len(emitters) == 0 {
		return fmt.Errorf("no emitters to simulate")
	}
	if !reset && len(emitters) != 1 {
		return fmt.Errorf("incremental evaluation requires exactly one emitter, got %d", len(emitters))
	}
	for _, em := range emitters {
		if em.Frequency() <= 0 {
			return fmt.Errorf("emitter frequency %g Hz must be positive", em.Frequency())
		}
	}

	walls := h.scene.WallsFiltered(area)
	corners := core.WallsCorners(walls)
	tracer := core.NewTracer(cfg, walls, corners)

	units := partition(receivers, BatchSize)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(units) && len(units) > 0 {
		workers = len(units)
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return fmt.Errorf("a simulation is already running")
	}
	h.running = true
	h.cancelling = false
	h.completedRun = false
	h.pending = len(units)
	h.initial = len(units)
	h.lastProgress = 0
	h.runReceivers = receivers
	h.runStats = core.PathStats{}
	h.runStart = time.Now()
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	_, span := otel.Tracer("radioplanner/engine").Start(ctx, "simulation.run",
		trace.WithAttributes(
			attribute.Int("receivers", len(receivers)),
			attribute.Int("emitters", len(emitters)),
			attribute.Int("walls", len(walls)),
			attribute.Int("units", len(units)),
			attribute.Bool("incremental", !reset),
		))
	h.mu.Lock()
	h.runSpan = span
	h.mu.Unlock()

	if reset {
		for _, rcv := range receivers {
			rcv.Reset()
		}
	}

	h.log.Info(ctx, "simulation started",
		logging.Int("receivers", len(receivers)),
		logging.Int("emitters", len(emitters)),
		logging.Int("walls", len(walls)),
		logging.Int("corners", len(corners)),
		logging.Int("units", len(units)),
		logging.Int("workers", workers),
	)
	if h.metrics != nil {
		h.metrics.RunStarted()
		h.metrics.SetGeometryCounts(len(walls), len(corners), len(receivers))
		h.metrics.SetProgress(0)
	}
	h.emit(func(l Listener) { l.SimulationStarted() })

	queue := make(chan []*core.Receiver, len(units))
	for _, u := range units {
		queue <- u
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.worker(queue, tracer, emitters)
		}()
	}

	go func() {
		wg.Wait()
		h.finalize(ctx, done)
	}()

	return nil
}

// CancelSimulation requests cancellation of the running simulation.
// In-flight units finish their batch; queued units are dropped; the
// run transitions to cancelled once the last unit returns.
func (h *Handler) CancelSimulation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.cancelling = true
}

// worker drains the unit queue. Cancellation is observed between
// units, never inside one.
func (h *Handler) worker(queue <-chan []*core.Receiver, tracer *core.Tracer, emitters []*core.Emitter) {
	for unit := range queue {
		if h.IsCancelling() {
			// Queued unit dropped; still accounted for so the run
			// drains.
			h.completeUnit()
			continue
		}

		start := time.Now()
		var stats core.PathStats
		for _, rcv := range unit {
			stats.Add(tracer.ComputeReceiver(rcv, emitters))
		}

		h.mu.Lock()
		h.runStats.Add(stats)
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.ObserveBatchSeconds(time.Since(start).Seconds())
			h.metrics.AddPathCounts(stats.LOS, stats.Reflections, stats.Ground, stats.Diffraction)
		}

		h.completeUnit()
	}
}

// completeUnit retires one work unit and publishes the new progress
// fraction. The decrement and the emission share one critical section
// so observers never see progress move backward.
func (h *Handler) completeUnit() {
	h.progressMu.Lock()
	defer h.progressMu.Unlock()

	h.mu.Lock()
	h.pending--
	frac := 1.0
	if h.initial > 0 {
		frac = 1 - float64(h.pending)/float64(h.initial)
	}
	if frac < h.lastProgress {
		frac = h.lastProgress
	}
	h.lastProgress = frac
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetProgress(frac)
	}
	h.emit(func(l Listener) { l.SimulationProgress(frac) })
}

// finalize transitions the drained run to finished or cancelled.
func (h *Handler) finalize(ctx context.Context, done chan struct{}) {
	h.mu.Lock()
	cancelled := h.cancelling
	receivers := h.runReceivers
	stats := h.runStats
	elapsed := time.Since(h.runStart)
	span := h.runSpan
	h.mu.Unlock()

	if cancelled {
		// No partial results survive a cancelled run.
		for _, rcv := range receivers {
			rcv.Reset()
		}
	}

	h.mu.Lock()
	h.running = false
	h.cancelling = false
	h.completedRun = true
	h.runReceivers = nil
	h.runSpan = nil
	h.mu.Unlock()

	outcome := "finished"
	if cancelled {
		outcome = "cancelled"
	}
	if span != nil {
		span.SetAttributes(
			attribute.String("outcome", outcome),
			attribute.Int("paths", stats.Total()),
		)
		span.End()
	}
	if h.metrics != nil {
		h.metrics.RunEnded(outcome)
	}

	if cancelled {
		h.log.Info(ctx, "simulation cancelled", logging.String("elapsed", elapsed.String()))
		h.emit(func(l Listener) { l.SimulationCancelled() })
	} else {
		h.log.Info(ctx, "simulation finished",
			logging.String("elapsed", elapsed.String()),
			logging.Int("paths", stats.Total()),
			logging.Int("los", stats.LOS),
			logging.Int("reflections", stats.Reflections),
			logging.Int("ground", stats.Ground),
			logging.Int("diffraction", stats.Diffraction),
		)
		h.emit(func(l Listener) { l.SimulationFinished() })
	}

	close(done)
}

// emit calls fn on a snapshot of the listener list.
func (h *Handler) emit(fn func(Listener)) {
	h.mu.Lock()
	listeners := make([]Listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}

// partition splits the receivers into units of at most size entries.
func partition(receivers []*core.Receiver, size int) [][]*core.Receiver {
	var units [][]*core.Receiver
	for start := 0; start < len(receivers); start += size {
		end := start + size
		if end > len(receivers) {
			end = len(receivers)
		}
		units = append(units, receivers[start:end])
	}
	return units
}
