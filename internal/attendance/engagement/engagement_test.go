package engagement

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "flock/pkg/domain-errors"
)

var now = time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func TestScore(t *testing.T) {
	t.Run("attended today at full rate", func(t *testing.T) {
		score, err := Score(100, daysAgo(0), now)
		require.NoError(t, err)
		assert.Equal(t, 100, score)
	})

	t.Run("never attended uses zero recency", func(t *testing.T) {
		score, err := Score(80, nil, now)
		require.NoError(t, err)
		assert.Equal(t, 56, score)
	})

	t.Run("recency decays one point per whole day", func(t *testing.T) {
		score, err := Score(50, daysAgo(10), now)
		require.NoError(t, err)
		assert.Equal(t, 62, score) // 35 + 27
	})

	t.Run("partial days are floored", func(t *testing.T) {
		last := now.Add(-47 * time.Hour)
		score, err := Score(0, &last, now)
		require.NoError(t, err)
		assert.Equal(t, 30, score) // recency 99
	})

	t.Run("recency floors at zero after 100 days", func(t *testing.T) {
		score, err := Score(40, daysAgo(250), now)
		require.NoError(t, err)
		assert.Equal(t, 28, score)
	})

	t.Run("future last attendance is a validation error", func(t *testing.T) {
		future := now.Add(time.Minute)
		_, err := Score(90, &future, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rate outside 0-100 is a validation error", func(t *testing.T) {
		_, err := Score(101, nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = Score(-1, nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestScoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("score is within 0-100", prop.ForAll(
		func(rate, days int) bool {
			score, err := Score(rate, daysAgo(days), now)
			return err == nil && score >= 0 && score <= 100
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 1000),
	))

	properties.Property("non-decreasing in rate for fixed recency", prop.ForAll(
		func(a, b, days int) bool {
			lo, hi := min(a, b), max(a, b)
			sLo, err1 := Score(lo, daysAgo(days), now)
			sHi, err2 := Score(hi, daysAgo(days), now)
			return err1 == nil && err2 == nil && sLo <= sHi
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
		gen.IntRange(0, 400),
	))

	properties.Property("non-increasing in days since last attendance", prop.ForAll(
		func(rate, a, b int) bool {
			near, far := min(a, b), max(a, b)
			sNear, err1 := Score(rate, daysAgo(near), now)
			sFar, err2 := Score(rate, daysAgo(far), now)
			return err1 == nil && err2 == nil && sFar <= sNear
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 400),
		gen.IntRange(0, 400),
	))

	properties.TestingRun(t)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, LevelVeryHigh, LevelOf(90))
	assert.Equal(t, LevelHigh, LevelOf(89))
	assert.Equal(t, LevelMedium, LevelOf(50))
	assert.Equal(t, LevelLow, LevelOf(30))
	assert.Equal(t, LevelVeryLow, LevelOf(29))
}
