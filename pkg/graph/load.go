package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoadFile reads a network from a binary snapshot, or from a GeoJSON file
// when the extension is .geojson or .json.
func LoadFile(path string) ([]Edge, error) {
	start := time.Now()

	var edges []Edge
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		edges, err = ReadGeoJSON(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	default:
		var err error
		edges, err = ReadBinary(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	log.Infof("loaded %d edges from %s in %s", len(edges), path, time.Since(start).Round(time.Millisecond))
	return edges, nil
}
