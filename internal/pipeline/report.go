package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/google/uuid"
)

// SkippedSource records a source that contributed no records.
type SkippedSource struct {
	Operator string `json:"operator"`
	Path     string `json:"path"`
	Reason   string `json:"reason"`
}

// Report summarizes a pipeline run.
type Report struct {
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Reused is true when the existing output was loaded instead of
	// running the pipeline.
	Reused bool `json:"reused"`

	Sources        int                       `json:"sources"`
	Processed      int                       `json:"processed"`
	Kept           int                       `json:"kept"`
	Dropped        map[domain.DropReason]int `json:"dropped"`
	SkippedSources []SkippedSource           `json:"skipped_sources,omitempty"`

	Operators []string `json:"operators"`
	Provinces []string `json:"provinces"`
	Voltages  []string `json:"voltages"`

	// SinkErrors maps a secondary sink name to its failure.
	SinkErrors map[string]string `json:"sink_errors,omitempty"`
}

// DroppedTotal returns the number of rows dropped across all reasons.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

func (r *Report) summarize(recs []domain.CanonicalRecord) {
	r.Kept = len(recs)
	r.Operators = domain.UniqueOperators(recs)
	r.Provinces = domain.UniqueProvinces(recs)
	r.Voltages = domain.VoltageLevels(recs)
}

// WriteSummary prints a human-readable summary of the run.
func (r Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	if r.Reused {
		fmt.Fprintf(&b, "Output already exists, loaded %d records (use -force to rebuild)\n", r.Kept)
	} else {
		fmt.Fprintf(&b, "Run %s finished in %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		fmt.Fprintf(&b, "Records processed: %d\n", r.Processed)
		fmt.Fprintf(&b, "Records kept:      %d\n", r.Kept)
		fmt.Fprintf(&b, "Records dropped:   %d\n", r.DroppedTotal())

		reasons := make([]string, 0, len(r.Dropped))
		for reason := range r.Dropped {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(&b, "  %s: %d\n", reason, r.Dropped[domain.DropReason(reason)])
		}
		for _, s := range r.SkippedSources {
			fmt.Fprintf(&b, "Source skipped: %s (%s): %s\n", s.Path, s.Operator, s.Reason)
		}
		sinks := make([]string, 0, len(r.SinkErrors))
		for name := range r.SinkErrors {
			sinks = append(sinks, name)
		}
		sort.Strings(sinks)
		for _, name := range sinks {
			fmt.Fprintf(&b, "Sink %s failed: %s\n", name, r.SinkErrors[name])
		}
	}
	fmt.Fprintf(&b, "Grid operators: %s\n", strings.Join(r.Operators, ", "))
	fmt.Fprintf(&b, "Provinces:      %d\n", len(r.Provinces))
	fmt.Fprintf(&b, "Voltage levels: %s\n", strings.Join(r.Voltages, ", "))

	_, err := io.WriteString(w, b.String())
	return err
}
