// Package grading holds the pure grading core: the grading scale, score aggregation,
// class ranking and broadsheet assembly. Nothing in here performs I/O.
package grading

import (
	"sort"
)

const (
	MinScore = 0
	MaxScore = 100
)

// GradeBand is an inclusive score range mapped to a letter grade.
type GradeBand struct {
	Low         int    `json:"low" yaml:"low"`
	High        int    `json:"high" yaml:"high"`
	Letter      string `json:"letter" yaml:"letter"`
	Description string `json:"description" yaml:"description"`
}

func (b GradeBand) contains(score int) bool {
	return b.Low <= score && score <= b.High
}

// Classification is the result of classifying a score.
type Classification struct {
	Grade       string `json:"grade"`
	Description string `json:"description"`
}

// Scale is a validated, immutable set of grade bands.
type Scale struct {
	bands []GradeBand // ordered high -> low
}

// NewScale validates bands and builds a Scale.
// bands must not overlap and must cover [MinScore, MaxScore] without gaps.
func NewScale(bands []GradeBand) (*Scale, error) {
	if len(bands) == 0 {
		return nil, newConfigError("no bands")
	}

	sorted := make([]GradeBand, len(bands))
	copy(sorted, bands)
	for _, b := range sorted {
		if b.Letter == "" {
			return nil, newConfigError("missing letter", b)
		}
		if b.Low > b.High {
			return nil, newConfigError("low bound greater than high bound", b)
		}
		if b.Low < MinScore || b.High > MaxScore {
			return nil, newConfigError("bound outside [0,100]", b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Low < sorted[j].Low })

	if sorted[0].Low != MinScore {
		return nil, newConfigError("score 0 is not covered", sorted[0])
	}
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		switch {
		case cur.Low <= prev.High:
			return nil, newConfigError("overlapping bands", cur)
		case cur.Low > prev.High+1:
			return nil, newConfigError("gap between bands", cur)
		}
	}
	if last := sorted[len(sorted)-1]; last.High != MaxScore {
		return nil, newConfigError("score 100 is not covered", last)
	}

	// high -> low
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return &Scale{bands: sorted}, nil
}

// DefaultScale returns the GES grading scale.
func DefaultScale() *Scale {
	scale, err := NewScale(defaultBands())
	if err != nil {
		panic(err)
	}
	return scale
}

func defaultBands() []GradeBand {
	return []GradeBand{
		{Low: 80, High: 100, Letter: "A+", Description: "Excellent"},
		{Low: 75, High: 79, Letter: "A", Description: "Very Good"},
		{Low: 70, High: 74, Letter: "B+", Description: "Good"},
		{Low: 65, High: 69, Letter: "B", Description: "Credit"},
		{Low: 60, High: 64, Letter: "C+", Description: "Above Average"},
		{Low: 55, High: 59, Letter: "C", Description: "Average"},
		{Low: 50, High: 54, Letter: "D+", Description: "Fair"},
		{Low: 45, High: 49, Letter: "D", Description: "Pass"},
		{Low: 40, High: 44, Letter: "E", Description: "Weak Pass"},
		{Low: 0, High: 39, Letter: "F", Description: "Fail"},
	}
}

// Classify returns the grade of the band containing score.
// Scores outside [0,100] fall back to the lowest band.
func (s *Scale) Classify(score int) Classification {
	for _, b := range s.bands {
		if b.contains(score) {
			return Classification{Grade: b.Letter, Description: b.Description}
		}
	}
	lowest := s.bands[len(s.bands)-1]
	return Classification{Grade: lowest.Letter, Description: lowest.Description}
}

// Bands returns a copy of the bands, ordered from highest to lowest.
func (s *Scale) Bands() []GradeBand {
	bands := make([]GradeBand, len(s.bands))
	copy(bands, s.bands)
	return bands
}
