package engine

// Listener observes the lifecycle of a simulation run. Callbacks are
// invoked from orchestrator goroutines; implementations must be safe
// for that and quick.
type Listener interface {
	SimulationStarted()
	SimulationProgress(fraction float64)
	SimulationFinished()
	SimulationCancelled()
}

// ListenerFuncs adapts plain functions to the Listener interface. Nil
// fields are skipped.
type ListenerFuncs struct {
	Started   func()
	Progress  func(float64)
	Finished  func()
	Cancelled func()
}

// SimulationStarted implements Listener.
func (l ListenerFuncs) SimulationStarted() {
	if l.Started != nil {
		l.Started()
	}
}

// SimulationProgress implements Listener.
func (l ListenerFuncs) SimulationProgress(fraction float64) {
	if l.Progress != nil {
		l.Progress(fraction)
	}
}

// SimulationFinished implements Listener.
func (l ListenerFuncs) SimulationFinished() {
	if l.Finished != nil {
		l.Finished()
	}
}

// SimulationCancelled implements Listener.
func (l ListenerFuncs) SimulationCancelled() {
	if l.Cancelled != nil {
		l.Cancelled()
	}
}

// MetricsRecorder receives orchestrator-level measurements. The
// observability package provides the Prometheus-backed implementation;
// a nil recorder disables recording.
type MetricsRecorder interface {
	RunStarted()
	RunEnded(outcome string)
	SetGeometryCounts(walls, corners, receivers int)
	SetProgress(fraction float64)
	ObserveBatchSeconds(seconds float64)
	AddPathCounts(los, reflections, ground, diffraction int)
}
