package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadPackages(t *testing.T) {
	csv := `ID,Address,City,State,Zip,Deadline,Weight,Note
1,195 West Oakland Ave,Salt Lake City,UT,84115,10:30 AM,21,
2,2530 South 500 East,Salt Lake City,UT,84106,EOD,44,Can only be on truck 2
3,410 S State St,Salt Lake City,UT,84111,EOD,2,Delayed on flight---will not arrive to depot until 9:05 am
`
	path := writeFile(t, "packages.csv", csv)
	pkgs, err := LoadPackages(path, day, start)
	if err != nil {
		t.Fatalf("LoadPackages: %v", err)
	}
	if len(pkgs) != 3 {
		t.Fatalf("got %d packages, want 3", len(pkgs))
	}

	p1 := pkgs[0]
	if p1.Location != "195 w oakland ave" {
		t.Fatalf("p1 location = %q", p1.Location)
	}
	if !p1.HasDeadline() || p1.Deadline.Hour() != 10 || p1.Deadline.Minute() != 30 {
		t.Fatalf("p1 deadline = %v", p1.Deadline)
	}
	if !p1.AvailableAt.Equal(start) {
		t.Fatalf("p1 available = %v, want fleet start", p1.AvailableAt)
	}

	if pkgs[1].OnlyVehicle != 2 {
		t.Fatalf("p2 OnlyVehicle = %d, want 2", pkgs[1].OnlyVehicle)
	}
	if want := start.Add(65 * time.Minute); !pkgs[2].AvailableAt.Equal(want) {
		t.Fatalf("p3 available = %v, want %v", pkgs[2].AvailableAt, want)
	}
}

func TestLoadPackagesDuplicateID(t *testing.T) {
	csv := "1,410 S State St,SLC,UT,84111,EOD,2,\n1,410 S State St,SLC,UT,84111,EOD,2,\n"
	path := writeFile(t, "packages.csv", csv)
	if _, err := LoadPackages(path, day, start); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadMatrixMirrorsLowerTriangle(t *testing.T) {
	csv := `,HUB,195 West Oakland Ave,410 S State St
HUB,0,,
195 West Oakland Ave,2.0,0,
410 S State St,4.0,1.0,0
`
	path := writeFile(t, "distances.csv", csv)
	m, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix: %v", err)
	}
	d, err := m.Distance("hub", "410 s state st")
	if err != nil || d != 4.0 {
		t.Fatalf("hub->410 = %v, %v, want 4.0", d, err)
	}
	d, err = m.Distance("410 s state st", "hub")
	if err != nil || d != 4.0 {
		t.Fatalf("410->hub = %v, %v, want 4.0", d, err)
	}
}

func TestLoadMatrixRejectsConflict(t *testing.T) {
	csv := `,HUB,A St
HUB,0,3.0
A St,2.0,0
`
	path := writeFile(t, "distances.csv", csv)
	if _, err := LoadMatrix(path); err == nil {
		t.Fatal("expected asymmetric conflict error")
	}
}

func TestLoadMatrixRejectsMissingPair(t *testing.T) {
	csv := `,HUB,A St
HUB,0,
A St,,0
`
	path := writeFile(t, "distances.csv", csv)
	if _, err := LoadMatrix(path); err == nil {
		t.Fatal("expected missing distance error")
	}
}
