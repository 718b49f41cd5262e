package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/signalsfoundry/radioplanner/core"
	"github.com/signalsfoundry/radioplanner/engine"
	"github.com/signalsfoundry/radioplanner/internal/logging"
	"github.com/signalsfoundry/radioplanner/internal/observability"
	"github.com/signalsfoundry/radioplanner/optimizer"
	"github.com/signalsfoundry/radioplanner/scene"
)

func main() {
	scenePath := flag.String("scene", "", "path to a scene file; empty runs the built-in demo scene")
	savePath := flag.String("save", "", "write the scene (placed transmitters included) to this path")
	gridSpec := flag.String("grid", "", "receiver area as x,y,width,height in metres")
	frequency := flag.Float64("freq", 2.4e9, "candidate transmitter frequency in Hz")
	eirp := flag.Float64("eirp", 2.0, "candidate transmitter EIRP in watts")
	efficiency := flag.Float64("eta", 1.0, "candidate antenna efficiency")
	horizontal := flag.Bool("horizontal", false, "use a horizontal dipole instead of a vertical one")
	threshold := flag.Float64("threshold", 0.9, "target coverage ratio")
	margin := flag.Float64("margin", 0.0, "fade margin in dB")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	sc, err := loadScene(*scenePath)
	if err != nil {
		log.Error(ctx, "failed to load scene", logging.String("path", *scenePath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	area, err := parseArea(*gridSpec)
	if err != nil {
		log.Error(ctx, "bad receiver area", logging.String("error", err.Error()))
		os.Exit(1)
	}
	receivers := sc.GridReceivers(area, core.HalfWaveDipoleVert, 1.0)
	if len(receivers) == 0 {
		log.Error(ctx, "receiver area is empty")
		os.Exit(1)
	}

	antennaType := core.HalfWaveDipoleVert
	if *horizontal {
		antennaType = core.HalfWaveDipoleHoriz
	}

	handler := engine.New(sc, log)
	opt := optimizer.New(handler, receivers, area, optimizer.Template{
		Frequency:  *frequency,
		EIRP:       *eirp,
		Efficiency: *efficiency,
		Antenna:    antennaType,
	}, *threshold, *margin, log)

	result, err := opt.Optimize(ctx)
	if err != nil {
		log.Error(ctx, "optimization failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Coverage %.1f%% after %d iterations (%d transmitters placed)\n",
		100*result.Coverage, result.Iterations, len(result.Placed))
	for i, em := range result.Placed {
		fmt.Printf("tx %d @ (%.2f, %.2f)\n", i, em.Position().X, em.Position().Y)
	}
	switch {
	case result.Cancelled:
		fmt.Println("Optimization cancelled.")
	case !result.Feasible:
		fmt.Println("Target coverage is not reachable with the available corners.")
	}

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

// demoScene holds two free-standing buildings, so the optimizer has
// corners to work with.
func demoScene() *scene.Scene {
	sc := scene.New()
	sc.AttachBuilding(scene.NewBuilding(20, 20, 10, 10))
	sc.AttachBuilding(scene.NewBuilding(50, 35, 8, 12))
	return sc
}

func parseArea(spec string) (core.Rect, error) {
	if spec == "" {
		return core.Rect{X: 0, Y: 0, Width: 80, Height: 60}, nil
	}
	var x, y, w, h float64
	if _, err := fmt.Sscanf(spec, "%f,%f,%f,%f", &x, &y, &w, &h); err != nil {
		return core.Rect{}, fmt.Errorf("bad area spec %q: %w", spec, err)
	}
	return core.Rect{X: x, Y: y, Width: w, Height: h}, nil
}
