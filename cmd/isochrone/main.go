package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"isochrone_engine/pkg/concave"
	"isochrone_engine/pkg/graph"
	"isochrone_engine/pkg/isochrone"
)

var log = logrus.WithField("module", "isochrone-cli")

func main() {
	networkPath := flag.String("network", "network.bin", "Path to network file (.bin snapshot or .geojson)")
	starts := flag.String("starts", "", "Comma-separated start vertex ids (e.g. 1,2)")
	limits := flag.String("limits", "", "Comma-separated cost limits (e.g. 300,600)")
	minCover := flag.Bool("min-cover", false, "Keep only the cheaper direction of edges reached from both ends")
	workers := flag.Int("workers", 0, "Concurrent start vertices (0 = NumCPU)")
	concavity := flag.Float64("concavity", concave.DefaultConcavity, "Concavity of isochrone shapes (larger is closer to the convex hull)")
	output := flag.String("output", "", "Output GeoJSON path (empty = stdout)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *starts == "" || *limits == "" {
		fmt.Fprintln(os.Stderr, "Usage: isochrone --network <network.bin> --starts 1,2 --limits 300,600 [--min-cover] [--output out.geojson]")
		os.Exit(1)
	}
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	startIDs, err := parseList(*starts, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
	if err != nil {
		log.Fatalf("invalid --starts: %v", err)
	}
	limitValues, err := parseList(*limits, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	if err != nil {
		log.Fatalf("invalid --limits: %v", err)
	}

	edges, err := graph.LoadFile(*networkPath)
	if err != nil {
		log.Fatalf("failed to load network: %v", err)
	}

	opts := []isochrone.Option{
		isochrone.WithWorkers(*workers),
		isochrone.WithRefiner(concave.Refiner{Concavity: *concavity}),
	}
	calc, err := isochrone.New(edges, opts...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := calc.Calculate(ctx, isochrone.Request{
		StartVertices:    startIDs,
		Limits:           limitValues,
		OnlyMinimumCover: *minCover,
	})
	if err != nil {
		log.Fatalf("isochrone failed: %v", err)
	}
	log.WithFields(logrus.Fields{
		"starts":   len(startIDs),
		"segments": len(result.Network),
	}).Infof("computed in %s", time.Since(start).Round(time.Millisecond))

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	if err := enc.Encode(isochrone.FeatureCollection(result)); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}
}

func parseList[T any](s string, parse func(string) (T, error)) ([]T, error) {
	parts := strings.Split(s, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := parse(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
