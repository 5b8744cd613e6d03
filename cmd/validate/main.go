// Command validate checks a canonical capacity table for integrity: header
// layout, number formatting, coordinate ranges, derived-field consistency
// and radius scaling.
//
// Usage:
//
//	go run ./cmd/validate -input data.csv
package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/output"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "data.csv", "canonical CSV to validate")
	minRadius := flag.Float64("min-radius", domain.DefaultMinRadius, "smallest marker radius")
	maxRadius := flag.Float64("max-radius", domain.DefaultMaxRadius, "largest marker radius")
	flag.Parse()

	if code := run(*input, *minRadius, *maxRadius); code != 0 {
		os.Exit(code)
	}
}

func run(path string, minRadius, maxRadius float64) int {
	fmt.Println("=== Grid Capacity Table Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
		return 1
	}
	recs, err := output.ReadCSV(bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode %s: %v\n", path, err)
		return 1
	}

	phases := []*phase{
		validateLayout(data),
		validateCoordinates(recs),
		validateDerivedFields(recs),
		validateRadius(recs, minRadius, maxRadius),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d, operators: %s\n", len(recs), strings.Join(domain.UniqueOperators(recs), ", "))
	fmt.Printf("Voltage levels: %s\n", strings.Join(domain.VoltageLevels(recs), ", "))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// numericColumns are the columns that must hold plain decimal numbers.
var numericColumns = map[string]bool{
	domain.FieldLatitude:        true,
	domain.FieldLongitude:       true,
	domain.FieldVoltageKV:       true,
	domain.FieldCapAvailable:    true,
	domain.FieldCapCommitted:    true,
	domain.FieldCapOccupied:     true,
	domain.FieldCapUnevaluated:  true,
	domain.FieldCapTotal:        true,
	domain.FieldAvailabilityPct: true,
	domain.FieldRadius:          true,
}

// validateLayout checks the raw file: header order, line endings and
// number formatting.
func validateLayout(data []byte) *phase {
	p := &phase{name: "Layout (header, line endings, numbers)"}

	if bytes.Contains(data, []byte("\r")) {
		p.errorf("file contains carriage returns")
	}

	r := csv.NewReader(bufio.NewReader(bytes.NewReader(data)))
	rows, err := r.ReadAll()
	if err != nil {
		p.errorf("parse: %v", err)
		return p
	}
	if len(rows) == 0 {
		p.errorf("file is empty")
		return p
	}
	if strings.Join(rows[0], ",") != strings.Join(domain.CanonicalHeader, ",") {
		p.errorf("header = %v, want %v", rows[0], domain.CanonicalHeader)
		return p
	}

	for i, row := range rows[1:] {
		for j, cell := range row {
			col := domain.CanonicalHeader[j]
			if !numericColumns[col] {
				continue
			}
			if cell == "" {
				if col != domain.FieldVoltageKV {
					p.errorf("row %d: %s is empty", i+1, col)
				}
				continue
			}
			if strings.ContainsAny(cell, "eE,") {
				p.errorf("row %d: %s=%q is not plain decimal", i+1, col, cell)
			}
		}
	}
	return p
}

func validateCoordinates(recs []domain.CanonicalRecord) *phase {
	p := &phase{name: "Coordinates (WGS84 range)"}
	for i, r := range recs {
		if r.Latitude < -90 || r.Latitude > 90 || r.Longitude < -180 || r.Longitude > 180 {
			p.errorf("row %d (%s): (%v, %v) out of range", i+1, r.Key(), r.Latitude, r.Longitude)
		}
		if r.Latitude == 0 && r.Longitude == 0 {
			p.errorf("row %d (%s): null island", i+1, r.Key())
		}
	}
	return p
}

// validateDerivedFields checks total, percentage and bucket. The total may
// include or exclude committed capacity depending on the source schema.
func validateDerivedFields(recs []domain.CanonicalRecord) *phase {
	p := &phase{name: "Derived fields (total, pct, bucket)"}
	for i, r := range recs {
		without := r.CapAvailable + r.CapOccupied + r.CapUnevaluated
		with := without + r.CapCommitted
		if math.Abs(r.CapTotal-without) > 0.006 && math.Abs(r.CapTotal-with) > 0.006 {
			p.errorf("row %d (%s): cap_total=%v matches neither %v nor %v", i+1, r.Key(), r.CapTotal, without, with)
		}

		switch {
		case r.CapTotal == 0 && r.AvailabilityPct != 0:
			p.errorf("row %d (%s): availability_pct=%v with zero total", i+1, r.Key(), r.AvailabilityPct)
		case r.CapTotal > 0:
			want := 100 * r.CapAvailable / r.CapTotal
			if math.Abs(r.AvailabilityPct-want) > 0.1 {
				p.errorf("row %d (%s): availability_pct=%v, want about %.1f", i+1, r.Key(), r.AvailabilityPct, want)
			}
		}

		if want := domain.BucketFor(r.AvailabilityPct); r.ColorBucket != want {
			p.errorf("row %d (%s): color_bucket=%s, want %s", i+1, r.Key(), r.ColorBucket, want)
		}
	}
	return p
}

// validateRadius checks that radius lies within bounds, grows with total
// capacity and reaches both bounds when capacities differ.
func validateRadius(recs []domain.CanonicalRecord, minRadius, maxRadius float64) *phase {
	p := &phase{name: "Radius (bounds, monotonic)"}
	if len(recs) == 0 {
		return p
	}
	const eps = 1e-3

	sorted := append([]domain.CanonicalRecord(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CapTotal < sorted[j].CapTotal })

	for i, r := range sorted {
		if r.Radius < minRadius-eps || r.Radius > maxRadius+eps {
			p.errorf("%s: radius=%v outside [%v, %v]", r.Key(), r.Radius, minRadius, maxRadius)
		}
		if i > 0 && r.Radius+eps < sorted[i-1].Radius {
			p.errorf("%s: radius=%v smaller than %v for lower capacity", r.Key(), r.Radius, sorted[i-1].Radius)
		}
	}

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi.CapTotal > lo.CapTotal {
		if math.Abs(lo.Radius-minRadius) > eps {
			p.errorf("smallest capacity has radius %v, want %v", lo.Radius, minRadius)
		}
		if math.Abs(hi.Radius-maxRadius) > eps {
			p.errorf("largest capacity has radius %v, want %v", hi.Radius, maxRadius)
		}
	}
	return p
}
