package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sort"

	"github.com/signalsfoundry/radioplanner/core"
	"github.com/signalsfoundry/radioplanner/engine"
	"github.com/signalsfoundry/radioplanner/internal/logging"
	"github.com/signalsfoundry/radioplanner/internal/observability"
	"github.com/signalsfoundry/radioplanner/scene"
	"gonum.org/v1/gonum/stat"
)

func main() {
	scenePath := flag.String("scene", "", "path to a scene file; empty runs the built-in demo scene")
	savePath := flag.String("save", "", "write the scene back to this path after the run")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables)")
	gridSpec := flag.String("grid", "", "receiver grid as x,y,width,height in metres (empty uses the scene's point receivers)")
	maxReflections := flag.Int("max-reflections", -1, "override the configured reflection order (-1 keeps the scene value)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewSimulationCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *metricsAddr != "" {
		serveMetrics(*metricsAddr, collector, log)
	}

	sc, err := loadScene(*scenePath)
	if err != nil {
		log.Error(ctx, "failed to load scene", logging.String("path", *scenePath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *maxReflections >= 0 {
		sc.Config.SetMaxReflections(*maxReflections)
	}

	area, receivers, err := resolveReceivers(sc, *gridSpec)
	if err != nil {
		log.Error(ctx, "failed to resolve receivers", logging.String("error", err.Error()))
		os.Exit(1)
	}

	handler := engine.New(sc, log, engine.WithMetricsRecorder(collector))
	handler.AddListener(engine.ListenerFuncs{
		Progress: func(f float64) {
			log.Debug(ctx, "simulation progress", logging.Float64("fraction", f))
		},
	})

	if err := handler.StartSimulation(ctx, receivers, area, true, nil); err != nil {
		log.Error(ctx, "failed to start simulation", logging.String("error", err.Error()))
		os.Exit(1)
	}
	<-handler.Done()

	printSummary(sc, receivers)

	if *savePath != "" {
		if err := saveScene(*savePath, sc); err != nil {
			log.Error(ctx, "failed to save scene", logging.String("path", *savePath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "scene saved", logging.String("path", *savePath))
	}
}

func loadScene(path string) (*scene.Scene, error) {
	if path == "" {
		return demoScene(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scene.Load(f)
}

func saveScene(path string, sc *scene.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scene.Save(f, sc)
}

// demoScene is a small two-building street with one transmitter, used
// when no scene file is given.
func demoScene() *scene.Scene {
	sc := scene.New()
	sc.AttachBuilding(scene.NewBuilding(10, 10, 20, 15))
	sc.AttachBuilding(scene.NewBuilding(45, 10, 20, 15))

	em := core.NewEmitterWithAntenna(2.4e9, 2.0, 1.0, core.HalfWaveDipoleVert)
	em.SetPosition(core.Point{X: 37.5, Y: 5})
	sc.AttachEmitter(em)

	return sc
}

func resolveReceivers(sc *scene.Scene, gridSpec string) (core.Rect, []*core.Receiver, error) {
	if gridSpec == "" {
		receivers := sc.Receivers()
		if len(receivers) == 0 {
			// Demo fallback: a grid spanning the street.
			area := core.Rect{X: 5, Y: 0, Width: 65, Height: 40}
			return area, sc.GridReceivers(area, core.HalfWaveDipoleVert, 1.0), nil
		}
		return boundingArea(receivers), receivers, nil
	}

	var x, y, w, h float64
	if _, err := fmt.Sscanf(gridSpec, "%f,%f,%f,%f", &x, &y, &w, &h); err != nil {
		return core.Rect{}, nil, fmt.Errorf("bad grid spec %q: %w", gridSpec, err)
	}
	area := core.Rect{X: x, Y: y, Width: w, Height: h}
	return area, sc.GridReceivers(area, core.HalfWaveDipoleVert, 1.0), nil
}

// boundingArea returns a rect enclosing all receivers with a one-metre
// border, so no receiver sits exactly on the area boundary.
func boundingArea(receivers []*core.Receiver) core.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, rcv := range receivers {
		p := rcv.Position()
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return core.Rect{X: minX - 1, Y: minY - 1, Width: maxX - minX + 2, Height: maxY - minY + 2}
}

func printSummary(sc *scene.Scene, receivers []*core.Receiver) {
	cfg := sc.Config

	var powers []float64
	covered := 0
	for _, rcv := range receivers {
		p := rcv.ReceivedPower()
		if p > 0 {
			powers = append(powers, core.ConvertPowerToDBm(p))
		}
		if rcv.IsCovered(cfg, 0) {
			covered++
		}
	}

	fmt.Printf("Receivers: %d (%d covered, %.1f%%)\n",
		len(receivers), covered, 100*float64(covered)/float64(len(receivers)))

	if len(powers) > 0 {
		sort.Float64s(powers)
		fmt.Printf("Received power: mean %.1f dBm, p10 %.1f dBm, p90 %.1f dBm\n",
			stat.Mean(powers, nil),
			stat.Quantile(0.1, stat.Empirical, powers, nil),
			stat.Quantile(0.9, stat.Empirical, powers, nil),
		)
	}

	// Detail lines only for hand-placed point receivers; grids are too
	// large to print.
	if len(sc.Receivers()) > 0 && len(sc.Receivers()) <= 32 {
		for i, rcv := range sc.Receivers() {
			snr := rcv.UserEndSNR(cfg)
			line := fmt.Sprintf("rx %-2d @ (%6.1f, %6.1f)  %7.2f dBm  SNR %6.1f dB  rays %d",
				i, rcv.Position().X, rcv.Position().Y,
				core.ConvertPowerToDBm(rcv.ReceivedPower()), snr, rcv.PathCount())
			if spread, ok := rcv.DelaySpread(); ok {
				line += fmt.Sprintf("  delay spread %.1f ns", spread*1e9)
			}
			if rice, ok := rcv.RiceFactor(); ok {
				line += fmt.Sprintf("  rice %.1f dB", rice)
			}
			fmt.Println(line)
		}
	}
}

func serveMetrics(addr string, collector *observability.SimulationCollector, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
}
