package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"isochrone_engine/pkg/api"
	"isochrone_engine/pkg/concave"
	"isochrone_engine/pkg/graph"
	"isochrone_engine/pkg/isochrone"
	"isochrone_engine/pkg/routing"
)

var log = logrus.WithField("module", "server")

func main() {
	// A missing .env is fine; flags and the process environment still apply.
	_ = godotenv.Load()

	networkPath := flag.String("network", envOr("ISOCHRONE_NETWORK", "network.bin"), "Path to network file (.bin snapshot or .geojson)")
	port := flag.Int("port", envInt("ISOCHRONE_PORT", 8080), "HTTP port")
	workers := flag.Int("workers", envInt("ISOCHRONE_WORKERS", 0), "Concurrent start vertices per request (0 = NumCPU)")
	snapRadius := flag.Float64("snap-radius", routing.DefaultMaxSnapDistMeters, "Maximum snapping distance in meters")
	concavity := flag.Float64("concavity", concave.DefaultConcavity, "Concavity of isochrone shapes (larger is closer to the convex hull)")
	corsOrigin := flag.String("cors-origin", os.Getenv("ISOCHRONE_CORS_ORIGIN"), "CORS allowed origin (empty = same-origin)")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	logrus.SetLevel(level)

	opts := []isochrone.Option{
		isochrone.WithWorkers(*workers),
		isochrone.WithRefiner(concave.Refiner{Concavity: *concavity}),
	}

	load := func() (*isochrone.Calculator, *routing.Snapper, error) {
		start := time.Now()
		edges, err := graph.LoadFile(*networkPath)
		if err != nil {
			return nil, nil, err
		}
		calc, err := isochrone.New(edges, opts...)
		if err != nil {
			return nil, nil, err
		}
		snapper := routing.NewSnapper(calc.Network(), *snapRadius)

		net := calc.Network()
		log.WithFields(logrus.Fields{
			"vertices": net.NumVertices(),
			"edges":    len(net.Edges),
			"arcs":     len(net.Arcs),
		}).Infof("network ready in %s", time.Since(start).Round(time.Millisecond))
		return calc, snapper, nil
	}

	calc, snapper, err := load()
	if err != nil {
		log.Fatalf("failed to load network: %v", err)
	}

	cfg := api.DefaultConfig(fmt.Sprintf(":%d", *port))
	cfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(calc, snapper)
	srv := api.NewServer(cfg, handlers)

	reload := func() error {
		log.Infof("reloading network from %s", *networkPath)
		calc, snapper, err := load()
		if err != nil {
			return err
		}
		handlers.Swap(calc, snapper)
		return nil
	}

	if err := api.ListenAndServe(srv, reload); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("ignoring %s=%q: %v", key, v, err)
		return def
	}
	return n
}
