package grading

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScale_Classify(t *testing.T) {
	scale := DefaultScale()

	tests := []struct {
		score   int
		wantCls Classification
	}{
		{score: 100, wantCls: Classification{Grade: "A+", Description: "Excellent"}},
		{score: 80, wantCls: Classification{Grade: "A+", Description: "Excellent"}},
		{score: 79, wantCls: Classification{Grade: "A", Description: "Very Good"}},
		{score: 70, wantCls: Classification{Grade: "B+", Description: "Good"}},
		{score: 65, wantCls: Classification{Grade: "B", Description: "Credit"}},
		{score: 64, wantCls: Classification{Grade: "C+", Description: "Above Average"}},
		{score: 55, wantCls: Classification{Grade: "C", Description: "Average"}},
		{score: 50, wantCls: Classification{Grade: "D+", Description: "Fair"}},
		{score: 45, wantCls: Classification{Grade: "D", Description: "Pass"}},
		{score: 44, wantCls: Classification{Grade: "E", Description: "Weak Pass"}},
		{score: 39, wantCls: Classification{Grade: "F", Description: "Fail"}},
		{score: 0, wantCls: Classification{Grade: "F", Description: "Fail"}},
		// out of range falls back to the lowest band
		{score: -5, wantCls: Classification{Grade: "F", Description: "Fail"}},
		{score: 101, wantCls: Classification{Grade: "F", Description: "Fail"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantCls, scale.Classify(tt.score), "Classify(%d)", tt.score)
	}
}

func TestScale_ExactlyOneBandAndMonotonic(t *testing.T) {
	scale := DefaultScale()
	bands := scale.Bands()

	rank := make(map[string]int, len(bands)) // higher is better
	for i, b := range bands {
		rank[b.Letter] = len(bands) - i
	}

	prev := -1
	for s := MinScore; s <= MaxScore; s++ {
		var matches int
		for _, b := range bands {
			if b.contains(s) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "score %d", s)

		r := rank[scale.Classify(s).Grade]
		assert.GreaterOrEqual(t, r, prev, "score %d graded worse than %d", s, s-1)
		prev = r
	}
}

func TestScale_BandsIsACopy(t *testing.T) {
	scale := DefaultScale()
	bands := scale.Bands()
	bands[0].Letter = "Z"

	assert.Equal(t, "A+", scale.Classify(90).Grade)
	assert.Equal(t, 100, scale.Bands()[0].High)
}

func TestNewScale(t *testing.T) {
	tests := []struct {
		name    string
		bands   []GradeBand
		wantErr string
	}{
		{name: "empty", wantErr: "no bands"},
		{
			name:    "missing letter",
			bands:   []GradeBand{{Low: 0, High: 100}},
			wantErr: "missing letter",
		},
		{
			name:    "low > high",
			bands:   []GradeBand{{Low: 0, High: 49, Letter: "F"}, {Low: 100, High: 50, Letter: "P"}},
			wantErr: "low bound greater than high bound",
		},
		{
			name:    "out of range",
			bands:   []GradeBand{{Low: 0, High: 49, Letter: "F"}, {Low: 50, High: 110, Letter: "P"}},
			wantErr: "bound outside [0,100]",
		},
		{
			name:    "overlap",
			bands:   []GradeBand{{Low: 0, High: 50, Letter: "F"}, {Low: 50, High: 100, Letter: "P"}},
			wantErr: "overlapping bands",
		},
		{
			name:    "gap",
			bands:   []GradeBand{{Low: 0, High: 48, Letter: "F"}, {Low: 50, High: 100, Letter: "P"}},
			wantErr: "gap between bands",
		},
		{
			name:    "0 not covered",
			bands:   []GradeBand{{Low: 1, High: 100, Letter: "P"}},
			wantErr: "score 0 is not covered",
		},
		{
			name:    "100 not covered",
			bands:   []GradeBand{{Low: 0, High: 99, Letter: "P"}},
			wantErr: "score 100 is not covered",
		},
		{
			name:  "valid unordered",
			bands: []GradeBand{{Low: 50, High: 100, Letter: "P"}, {Low: 0, High: 49, Letter: "F"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale, err := NewScale(tt.bands)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "P", scale.Classify(50).Grade)
				assert.Equal(t, "F", scale.Classify(49).Grade)
				return
			}
			require.Error(t, err)
			assert.Nil(t, scale)
			cErr, ok := err.(*ConfigurationError)
			require.True(t, ok, "want *ConfigurationError, got %T", err)
			assert.Equal(t, tt.wantErr, cErr.Reason)
		})
	}
}

func TestLoadScale(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		src := `
bands:
  - {low: 50, high: 100, letter: P, description: Pass}
  - {low: 0, high: 49, letter: F, description: Fail}
`
		scale, err := LoadScale(strings.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, Classification{Grade: "P", Description: "Pass"}, scale.Classify(75))
	})

	t.Run("unknown field", func(t *testing.T) {
		src := `
bands:
  - {low: 0, high: 100, letter: P, grade: x}
`
		_, err := LoadScale(strings.NewReader(src))
		require.Error(t, err)
		assert.IsType(t, &ConfigurationError{}, err)
	})

	t.Run("gap", func(t *testing.T) {
		src := `
bands:
  - {low: 60, high: 100, letter: P}
  - {low: 0, high: 49, letter: F}
`
		_, err := LoadScale(strings.NewReader(src))
		require.Error(t, err)
		assert.IsType(t, &ConfigurationError{}, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := LoadScale(strings.NewReader(""))
		require.Error(t, err)
		assert.IsType(t, &ConfigurationError{}, err)
	})
}

func TestLoadScaleFile_DefaultWhenEmptyPath(t *testing.T) {
	scale, err := LoadScaleFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScale().Bands(), scale.Bands())
}
