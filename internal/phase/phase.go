// Package phase assigns a questioning strategy to every question position of a
// survey. A survey is cut into batches of five questions; the first two
// batches explore, later batches cycle through deep-dive, reframing and
// exploration so long surveys keep changing angle.
package phase

import (
	"errors"
	"fmt"
)

type Phase string

const (
	Exploration Phase = "exploration"
	DeepDive    Phase = "deep-dive"
	Reframing   Phase = "reframing"
)

// BatchSize is the number of questions sharing one phase.
const BatchSize = 5

// DefaultReportTarget is used when a session is created without a target.
const DefaultReportTarget = 10

// ErrInvalidReportTarget is returned by ValidateReportTarget.
var ErrInvalidReportTarget = errors.New("profile_misconfiguration")

// cycle applies from the third batch onwards.
var cycle = [...]Phase{DeepDive, Reframing, Exploration}

// Range is an inclusive 1-based window of question indexes.
type Range struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Phase Phase `json:"phase"`
}

// Profile is the ordered, contiguous list of ranges covering 1..reportTarget.
type Profile struct {
	Ranges []Range `json:"ranges"`
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case Exploration, DeepDive, Reframing:
		return true
	}
	return false
}

// ValidateReportTarget rejects targets that do not split into whole batches.
// Callers run it once when a session is configured; the other functions in
// this package assume a valid target.
func ValidateReportTarget(reportTarget int) error {
	if reportTarget < BatchSize || reportTarget%BatchSize != 0 {
		return fmt.Errorf("%w: report target %d is not a positive multiple of %d", ErrInvalidReportTarget, reportTarget, BatchSize)
	}
	return nil
}

// GenerateProfile derives the phase profile for reportTarget.
func GenerateProfile(reportTarget int) Profile {
	batchCount := reportTarget / BatchSize
	ranges := make([]Range, 0, batchCount)
	for i := 0; i < batchCount; i++ {
		ranges = append(ranges, Range{
			Start: i*BatchSize + 1,
			End:   (i + 1) * BatchSize,
			Phase: batchPhase(i),
		})
	}
	return Profile{Ranges: ranges}
}

func batchPhase(batch int) Phase {
	if batch < 2 {
		return Exploration
	}
	return cycle[(batch-2)%len(cycle)]
}

// MaxIndex returns the last question index covered by the profile, or 0.
func (p Profile) MaxIndex() int {
	if len(p.Ranges) == 0 {
		return 0
	}
	return p.Ranges[len(p.Ranges)-1].End
}

// Resolve returns the phase for questionIndex. Indexes past the end of the
// profile wrap around, so a session may run longer than its report target.
func Resolve(questionIndex int, profile Profile) Phase {
	maxEnd := profile.MaxIndex()
	if maxEnd == 0 {
		return Exploration
	}

	normalized := questionIndex
	if questionIndex > maxEnd {
		normalized = ((questionIndex - 1) % maxEnd) + 1
	}

	for _, r := range profile.Ranges {
		if normalized >= r.Start && normalized <= r.End {
			return r.Phase
		}
	}
	return Exploration
}

// BatchIndex returns the 0-based batch that questionIndex falls into.
func BatchIndex(questionIndex int) int {
	if questionIndex < 1 {
		return 0
	}
	return (questionIndex - 1) / BatchSize
}

// BatchBounds returns the inclusive question window of a 0-based batch.
func BatchBounds(batch int) (start, end int) {
	return batch*BatchSize + 1, (batch + 1) * BatchSize
}
