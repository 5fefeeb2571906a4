package ingest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"fleetnav/internal/geo"
	"fleetnav/internal/model"
)

// Package file columns. Rows whose id cell is not an integer are treated
// as headers and skipped.
const (
	colID = iota
	colAddress
	colCity
	colState
	colZip
	colDeadline
	colWeight
	colNote
	packageColumns = 8
)

// LoadPackages reads the package manifest CSV. day anchors deadlines,
// start is the fleet start time and the default availability.
func LoadPackages(path string, day, start time.Time) ([]*model.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load packages %s: %w", path, err)
	}

	var pkgs []*model.Package
	seen := make(map[int]bool)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[colID]))
		if err != nil {
			continue // header or annotation row
		}
		if len(row) < packageColumns-1 {
			return nil, fmt.Errorf("load packages %s: row %d has %d columns, want %d", path, i+1, len(row), packageColumns)
		}
		if seen[id] {
			return nil, fmt.Errorf("load packages %s: duplicate package id %d", path, id)
		}
		seen[id] = true

		p, err := buildPackage(id, row, day, start)
		if err != nil {
			return nil, fmt.Errorf("load packages %s: row %d: %w", path, i+1, err)
		}
		pkgs = append(pkgs, p)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("load packages %s: no package rows", path)
	}
	return pkgs, nil
}

func buildPackage(id int, row []string, day, start time.Time) (*model.Package, error) {
	deadline, err := ParseDeadline(row[colDeadline], day)
	if err != nil {
		return nil, err
	}
	weight, err := strconv.Atoi(strings.TrimSpace(row[colWeight]))
	if err != nil {
		return nil, fmt.Errorf("parse weight %q: %w", row[colWeight], err)
	}
	note := ""
	if len(row) > colNote {
		note = row[colNote]
	}
	c := ParseNote(note, start)

	p := &model.Package{
		ID:          id,
		Location:    NormalizeLocation(row[colAddress]),
		City:        strings.TrimSpace(row[colCity]),
		State:       strings.TrimSpace(row[colState]),
		Zip:         strings.TrimSpace(row[colZip]),
		Weight:      weight,
		Deadline:    deadline,
		AvailableAt: start,
		Status:      model.PackageAtHub,
	}
	if !c.AvailableAt.IsZero() {
		p.AvailableAt = c.AvailableAt
	}
	p.OnlyVehicle = c.OnlyVehicle
	p.GroupWith = c.GroupWith
	p.CorrectedLocation = c.CorrectedLocation
	p.CorrectionAt = c.CorrectionAt
	return p, nil
}

// LoadMatrix reads the distance table CSV: a header row naming every
// location, then one row per location with its distances. Blank cells
// are mirrored from the transposed cell, so lower-triangular exports
// load cleanly; a cell that conflicts with its mirror fails validation.
func LoadMatrix(path string) (*geo.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load matrix %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("load matrix %s: need a header row and at least one location row", path)
	}

	header := rows[0]
	locs := make([]string, 0, len(header)-1)
	for _, cell := range header[1:] {
		locs = append(locs, NormalizeLocation(cell))
	}
	n := len(locs)
	if len(rows)-1 != n {
		return nil, fmt.Errorf("load matrix %s: %d header locations but %d rows", path, n, len(rows)-1)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			dist[i][j] = math.NaN()
		}
	}
	for i, row := range rows[1:] {
		if len(row) == 0 {
			return nil, fmt.Errorf("load matrix %s: empty row %d", path, i+2)
		}
		if got := NormalizeLocation(row[0]); got != locs[i] {
			return nil, fmt.Errorf("load matrix %s: row %d is %q, header says %q", path, i+2, got, locs[i])
		}
		for j, cell := range row[1:] {
			if j >= n {
				return nil, fmt.Errorf("load matrix %s: row %d has more cells than locations", path, i+2)
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("load matrix %s: row %d col %d: %w", path, i+2, j+2, err)
			}
			dist[i][j] = v
		}
	}

	// Mirror missing cells from the other triangle.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.IsNaN(dist[i][j]) && !math.IsNaN(dist[j][i]) {
				dist[i][j] = dist[j][i]
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.IsNaN(dist[i][j]) {
				return nil, fmt.Errorf("load matrix %s: no distance between %q and %q", path, locs[i], locs[j])
			}
		}
	}
	return geo.New(locs, dist)
}
