// Package geo holds the immutable symmetric distance table used by the
// planner. Lookups are pure; malformed input fails at construction time.
package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLocation is returned when a location has no index entry.
	ErrUnknownLocation = errors.New("geo: unknown location")
	// ErrAsymmetric is returned when dist(a,b) != dist(b,a).
	ErrAsymmetric = errors.New("geo: asymmetric distance table")
	// ErrShape is returned for a non-square or inconsistent table.
	ErrShape = errors.New("geo: malformed distance table")
)

// Matrix is a symmetric location-distance table plus a location -> index
// mapping. It is read-only after construction and safe for concurrent use.
type Matrix struct {
	index map[string]int
	names []string
	dist  [][]float64
}

// New validates and wraps a distance table. The table must be square,
// match the location list, and be symmetric; violations fail loudly
// rather than being silently repaired.
func New(locations []string, dist [][]float64) (*Matrix, error) {
	n := len(locations)
	if len(dist) != n {
		return nil, fmt.Errorf("%w: %d locations, %d rows", ErrShape, n, len(dist))
	}
	index := make(map[string]int, n)
	for i, loc := range locations {
		if loc == "" {
			return nil, fmt.Errorf("%w: empty location name at row %d", ErrShape, i)
		}
		if _, dup := index[loc]; dup {
			return nil, fmt.Errorf("%w: duplicate location %q", ErrShape, loc)
		}
		index[loc] = i
	}
	for i, row := range dist {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), n)
		}
		for j := 0; j <= i; j++ {
			if row[j] < 0 {
				return nil, fmt.Errorf("%w: negative distance at [%d][%d]", ErrShape, i, j)
			}
			if dist[i][j] != dist[j][i] {
				return nil, fmt.Errorf("%w: [%d][%d]=%v vs [%d][%d]=%v",
					ErrAsymmetric, i, j, dist[i][j], j, i, dist[j][i])
			}
		}
	}
	names := append([]string(nil), locations...)
	return &Matrix{index: index, names: names, dist: dist}, nil
}

// Has reports whether the location is known to the table.
func (m *Matrix) Has(loc string) bool {
	_, ok := m.index[loc]
	return ok
}

// Distance returns the symmetric distance between two known locations.
func (m *Matrix) Distance(from, to string) (float64, error) {
	i, ok := m.index[from]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, from)
	}
	j, ok := m.index[to]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, to)
	}
	return m.dist[i][j], nil
}

// Locations returns the location names in index order.
func (m *Matrix) Locations() []string {
	return append([]string(nil), m.names...)
}

// Size returns the number of indexed locations.
func (m *Matrix) Size() int { return len(m.names) }
