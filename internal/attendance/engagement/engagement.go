// Package engagement scores how engaged a member is from their attendance
// rate and how recently they last attended.
package engagement

import (
	"math"
	"time"

	dErrors "flock/pkg/domain-errors"
)

const (
	rateWeight    = 0.7
	recencyWeight = 0.3
	maxScore      = 100
	day           = 24 * time.Hour
)

// Score returns round(0.7*rate + 0.3*recency) where recency is
// clamp(100 - whole days since last, 0, 100). A member who never attended
// has recency 0. A last attendance after now is rejected.
func Score(attendanceRate int, lastAttendance *time.Time, now time.Time) (int, error) {
	if attendanceRate < 0 || attendanceRate > maxScore {
		return 0, dErrors.Newf(dErrors.CodeValidation, "attendance rate %d outside 0-100", attendanceRate)
	}
	recency := 0
	if lastAttendance != nil {
		days, err := DaysBetween(*lastAttendance, now)
		if err != nil {
			return 0, err
		}
		recency = clamp(maxScore-days, 0, maxScore)
	}
	return int(math.Round(rateWeight*float64(attendanceRate) + recencyWeight*float64(recency))), nil
}

// DaysBetween returns the whole days elapsed from earlier to later.
func DaysBetween(earlier, later time.Time) (int, error) {
	if earlier.After(later) {
		return 0, dErrors.New(dErrors.CodeValidation, "last attendance is in the future")
	}
	return int(later.Sub(earlier) / day), nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Level buckets an engagement score.
type Level string

const (
	LevelVeryHigh Level = "very_high"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelVeryLow  Level = "very_low"
)

// LevelOf returns the bucket for score.
func LevelOf(score int) Level {
	switch {
	case score >= 90:
		return LevelVeryHigh
	case score >= 70:
		return LevelHigh
	case score >= 50:
		return LevelMedium
	case score >= 30:
		return LevelLow
	default:
		return LevelVeryLow
	}
}
