package phase

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProfile_Shape(t *testing.T) {
	for target := 5; target <= 100; target += 5 {
		profile := GenerateProfile(target)

		require.Len(t, profile.Ranges, target/5, "target %d", target)
		for i, r := range profile.Ranges {
			assert.Equal(t, i*5+1, r.Start, "target %d range %d start", target, i)
			assert.Equal(t, r.Start+4, r.End, "target %d range %d width", target, i)
			if i > 0 {
				assert.Equal(t, profile.Ranges[i-1].End+1, r.Start, "target %d range %d gap", target, i)
			}
		}
		assert.Equal(t, target, profile.MaxIndex())
	}
}

func TestGenerateProfile_Phases(t *testing.T) {
	tests := []struct {
		target int
		want   []Phase
	}{
		{10, []Phase{Exploration, Exploration}},
		{25, []Phase{Exploration, Exploration, DeepDive, Reframing, Exploration}},
		{50, []Phase{
			Exploration, Exploration,
			DeepDive, Reframing, Exploration,
			DeepDive, Reframing, Exploration,
			DeepDive, Reframing,
		}},
	}

	for _, tt := range tests {
		profile := GenerateProfile(tt.target)
		got := make([]Phase, len(profile.Ranges))
		for i, r := range profile.Ranges {
			got[i] = r.Phase
		}
		assert.Equal(t, tt.want, got, "target %d", tt.target)
	}
}

func TestGenerateProfile_Deterministic(t *testing.T) {
	assert.Equal(t, GenerateProfile(35), GenerateProfile(35))
}

func TestResolve(t *testing.T) {
	profile10 := GenerateProfile(10)
	profile25 := GenerateProfile(25)

	tests := []struct {
		name    string
		index   int
		profile Profile
		want    Phase
	}{
		{"first question", 1, profile10, Exploration},
		{"last in profile", 10, profile10, Exploration},
		{"wraps to first", 11, profile10, Exploration},
		{"deep dive window", 11, profile25, DeepDive},
		{"reframing window", 17, profile25, Reframing},
		{"third cycle exploration", 25, profile25, Exploration},
		{"wrap past 25 lands on batch 1", 26, profile25, Exploration},
		{"wrap past 25 into deep dive", 36, profile25, DeepDive},
		{"empty profile", 3, Profile{}, Exploration},
		{"zero index falls back", 0, profile10, Exploration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.index, tt.profile))
		})
	}
}

func TestResolve_WrapMatchesInRangeIndex(t *testing.T) {
	profile := GenerateProfile(25)
	for idx := 26; idx <= 100; idx++ {
		equivalent := ((idx - 1) % 25) + 1
		assert.Equal(t, Resolve(equivalent, profile), Resolve(idx, profile), "index %d", idx)
	}
}

func TestValidateReportTarget(t *testing.T) {
	for _, ok := range []int{5, 10, 25, 100} {
		assert.NoError(t, ValidateReportTarget(ok), "target %d", ok)
	}
	for _, bad := range []int{0, -5, 3, 7, 12} {
		err := ValidateReportTarget(bad)
		require.Error(t, err, "target %d", bad)
		assert.True(t, errors.Is(err, ErrInvalidReportTarget))
	}
}

func TestBatchHelpers(t *testing.T) {
	assert.Equal(t, 0, BatchIndex(1))
	assert.Equal(t, 0, BatchIndex(5))
	assert.Equal(t, 1, BatchIndex(6))
	assert.Equal(t, 0, BatchIndex(0))

	start, end := BatchBounds(2)
	assert.Equal(t, 11, start)
	assert.Equal(t, 15, end)
}

func TestDescribe(t *testing.T) {
	assert.True(t, strings.Contains(Describe(Exploration), "探索フェーズ"))
	assert.True(t, strings.Contains(Describe(DeepDive), "深掘りフェーズ"))
	assert.True(t, strings.Contains(Describe(Reframing), "視点変換フェーズ"))
	assert.NotEqual(t, Describe(Exploration), Describe(Reframing))
}
