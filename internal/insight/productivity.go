package insight

import (
	"math"
	"time"

	"github.com/nhle/task-dashboard/internal/model"
)

// DeltaKind tags the direction of a week-over-week change.
type DeltaKind string

const (
	DeltaNoBaseline DeltaKind = "no-baseline"
	DeltaPositive   DeltaKind = "positive"
	DeltaNegative   DeltaKind = "negative"
	DeltaNeutral    DeltaKind = "neutral"
)

const week = 7 * day

// ProductivityDelta compares tasks completed this week against last week.
// PercentMagnitude is meaningful only when Kind is not DeltaNoBaseline.
type ProductivityDelta struct {
	Kind             DeltaKind `json:"kind"`
	PercentMagnitude float64   `json:"percentMagnitude"`
	ThisWeek         int       `json:"thisWeek"`
	LastWeek         int       `json:"lastWeek"`
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WeekWindows returns this week [now-7d, now) and last week [now-14d, now-7d).
// An instant on the shared boundary belongs to this week.
func WeekWindows(now time.Time) (thisWeek, lastWeek Window) {
	boundary := now.Add(-week)
	return Window{Start: boundary, End: now},
		Window{Start: boundary.Add(-week), End: boundary}
}

// CompletedInWindows counts done tasks by the week their UpdatedAt falls in.
func CompletedInWindows(tasks []model.Task, now time.Time) (thisWeek, lastWeek int) {
	current, previous := WeekWindows(now)
	for _, t := range tasks {
		if t.Status != model.TaskStatusDone {
			continue
		}
		switch {
		case current.Contains(t.UpdatedAt):
			thisWeek++
		case previous.Contains(t.UpdatedAt):
			lastWeek++
		}
	}
	return thisWeek, lastWeek
}

// WeeklyDelta classifies the change from lastWeek to thisWeek. Without a
// baseline (lastWeek == 0) no percentage is computed.
func WeeklyDelta(thisWeek, lastWeek int) ProductivityDelta {
	d := ProductivityDelta{ThisWeek: thisWeek, LastWeek: lastWeek}
	if lastWeek == 0 {
		d.Kind = DeltaNoBaseline
		return d
	}

	change := float64(thisWeek-lastWeek) / float64(lastWeek) * 100
	d.PercentMagnitude = math.Abs(change)
	switch {
	case thisWeek > lastWeek:
		d.Kind = DeltaPositive
	case thisWeek < lastWeek:
		d.Kind = DeltaNegative
	default:
		d.Kind = DeltaNeutral
	}
	return d
}
