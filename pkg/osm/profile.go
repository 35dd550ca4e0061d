package osm

import (
	"errors"
	"fmt"

	"github.com/paulmach/osm"
)

// ErrUnknownProfile is returned by ProfileByName for unsupported names.
var ErrUnknownProfile = errors.New("osm: unknown profile")

// Profile decides which ways a mode of travel may use and how fast.
// Costs produced with a profile are travel times in seconds.
type Profile struct {
	Name string
	// Speeds maps accessible highway values to a speed in km/h.
	Speeds map[string]float64
	// AccessKeys are checked in order after "access"; "no" or "private"
	// on any of them excludes the way.
	AccessKeys []string
	// Oneway makes the profile honour oneway tags and implied oneways.
	Oneway bool
}

// Walking allows every footpath and ignores oneway restrictions.
var Walking = Profile{
	Name: "walking",
	Speeds: map[string]float64{
		"footway": 5, "pedestrian": 5, "path": 5, "steps": 2, "living_street": 5,
		"residential": 5, "service": 5, "unclassified": 5, "track": 4,
		"tertiary": 5, "tertiary_link": 5, "secondary": 5, "secondary_link": 5,
		"primary": 5, "primary_link": 5, "cycleway": 5,
	},
	AccessKeys: []string{"foot"},
}

// Cycling uses roads and cycleways and honours oneways.
var Cycling = Profile{
	Name: "cycling",
	Speeds: map[string]float64{
		"cycleway": 18, "path": 12, "track": 12, "living_street": 10,
		"residential": 15, "service": 12, "unclassified": 15,
		"tertiary": 16, "tertiary_link": 16, "secondary": 16, "secondary_link": 16,
		"primary": 15, "primary_link": 15,
	},
	AccessKeys: []string{"vehicle", "bicycle"},
	Oneway:     true,
}

// Driving covers the car network.
var Driving = Profile{
	Name: "driving",
	Speeds: map[string]float64{
		"motorway": 90, "motorway_link": 50, "trunk": 70, "trunk_link": 40,
		"primary": 50, "primary_link": 40, "secondary": 45, "secondary_link": 35,
		"tertiary": 40, "tertiary_link": 30, "unclassified": 30,
		"residential": 30, "living_street": 10, "service": 15,
	},
	AccessKeys: []string{"vehicle", "motor_vehicle"},
	Oneway:     true,
}

// ProfileByName returns one of the built-in profiles.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case Walking.Name:
		return Walking, nil
	case Cycling.Name:
		return Cycling, nil
	case Driving.Name, "":
		return Driving, nil
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// accessible reports whether the profile may use a way with these tags,
// and at what speed.
func (p Profile) accessible(tags osm.Tags) (float64, bool) {
	speed, ok := p.Speeds[tags.Find("highway")]
	if !ok || speed <= 0 {
		return 0, false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return 0, false
	}

	for _, key := range append([]string{"access"}, p.AccessKeys...) {
		switch tags.Find(key) {
		case "no", "private":
			return 0, false
		}
	}
	return speed, true
}

// directions returns (forward, backward) for a way under this profile.
func (p Profile) directions(tags osm.Tags) (forward, backward bool) {
	if !p.Oneway {
		return true, true
	}
	return directionFlags(tags)
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}
