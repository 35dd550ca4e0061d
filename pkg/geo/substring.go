package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// LineSubstring returns the part of line between the fractions start and end
// of its cumulative planar length. The fractions are swapped if start > end
// and clamped to [0, 1]. A fraction of exactly 0 or 1 yields the original
// first or last point without interpolation.
//
// A degenerate request (start == end) returns a two-point line with both
// points equal, so callers always get a usable segment.
func LineSubstring(line orb.LineString, start, end float64) orb.LineString {
	if len(line) == 0 {
		return orb.LineString{}
	}
	if start > end {
		start, end = end, start
	}
	start = clamp01(start)
	end = clamp01(end)

	if start >= 1 {
		last := line[len(line)-1]
		return orb.LineString{last, last}
	}
	if end <= 0 {
		first := line[0]
		return orb.LineString{first, first}
	}
	if len(line) == 1 {
		return orb.LineString{line[0], line[0]}
	}

	total := planar.Length(line)
	if total == 0 {
		return orb.LineString{line[0], line[0]}
	}
	startDist := start * total
	endDist := end * total

	var out orb.LineString
	if start == 0 {
		out = append(out, line[0])
	}

	travelled := 0.0
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		segLen := planar.Distance(a, b)
		if segLen == 0 {
			continue
		}
		segEnd := travelled + segLen

		if start > 0 && startDist >= travelled && startDist < segEnd {
			out = append(out, interpolate(a, b, (startDist-travelled)/segLen))
		}

		if end < 1 && endDist <= segEnd {
			out = append(out, interpolate(a, b, (endDist-travelled)/segLen))
			return ensureTwo(out)
		}

		// Interior vertex strictly inside the requested range.
		if segEnd > startDist && (end == 1 || segEnd < endDist) {
			out = append(out, b)
		}
		travelled = segEnd
	}

	// end == 1, or rounding left endDist just past the accumulated total.
	if last := line[len(line)-1]; len(out) == 0 || out[len(out)-1] != last {
		out = append(out, last)
	}
	return ensureTwo(out)
}

// interpolate returns the point at fraction t from a to b. Fractions at or
// outside the ends return the exact endpoint.
func interpolate(a, b orb.Point, t float64) orb.Point {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return orb.Point{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
	}
}

func ensureTwo(ls orb.LineString) orb.LineString {
	if len(ls) == 1 {
		return orb.LineString{ls[0], ls[0]}
	}
	return ls
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
