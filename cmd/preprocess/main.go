package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"isochrone_engine/pkg/graph"
	osmparser "isochrone_engine/pkg/osm"
)

var log = logrus.WithField("module", "preprocess")

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	output := flag.String("output", "network.bin", "Output network snapshot path")
	profileName := flag.String("profile", "driving", "Travel profile: walking, cycling or driving")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	singapore := flag.Bool("singapore", false, "Shortcut for --bbox 1.15,103.6,1.48,104.1 (Singapore bounding box)")
	kl := flag.Bool("kl", false, "Shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur bounding box)")
	keepAll := flag.Bool("keep-all", false, "Keep every connected component instead of only the largest")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: preprocess --input <file.osm.pbf> [--output network.bin] [--profile driving] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	profile, err := osmparser.ProfileByName(*profileName)
	if err != nil {
		log.Fatal(err)
	}
	opts := osmparser.ParseOptions{Profile: profile}

	if *kl {
		opts.BBox = osmparser.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
		log.Info("using Selangor + KL bounding box filter: lat [2.75, 3.50], lng [101.20, 102.00]")
	} else if *singapore {
		opts.BBox = osmparser.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
		log.Info("using Singapore bounding box filter: lat [1.15, 1.48], lng [103.6, 104.1]")
	} else if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Infof("using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	// Step 1: Parse OSM data.
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open input file: %v", err)
	}
	defer f.Close()

	log.Infof("parsing OSM data with %s profile...", profile.Name)
	edges, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("failed to parse OSM data: %v", err)
	}
	log.Infof("parsed %d edges", len(edges))

	// Step 2: Build network.
	net, err := graph.Build(edges)
	if err != nil {
		log.Fatalf("failed to build network: %v", err)
	}
	log.Infof("network: %d vertices, %d edges", net.NumVertices(), len(net.Edges))

	// Step 3: Keep the largest connected component.
	if !*keepAll {
		keep := graph.LargestComponent(net)
		edges = graph.FilterToComponent(net, keep)
		log.Infof("largest component: %d edges (%.1f%%)", len(edges), float64(len(edges))/float64(max(len(net.Edges), 1))*100)
	}

	// Step 4: Serialize.
	log.Infof("writing snapshot to %s...", *output)
	if err := graph.WriteBinary(*output, edges); err != nil {
		log.Fatalf("failed to write snapshot: %v", err)
	}

	info, err := os.Stat(*output)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("done in %s. Output: %s (%.1f MB)", time.Since(start).Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
