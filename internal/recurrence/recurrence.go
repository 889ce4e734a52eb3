// Package recurrence decides whether a task occurs on a given calendar
// day. The evaluation is pure and O(1) per call: month views call it up
// to daysInMonth x taskCount times.
package recurrence

import (
	"strings"

	"sales-ops-api/internal/models"
)

// OccursOn reports whether the task should be shown on the given day.
//
// Non-recurring tasks occur only on their start date or due date.
// Recurring tasks repeat from an anchor (start date, else due date,
// else the creation day) up to the due date when one is set:
//
//	daily:   every day in range
//	weekly:  same weekday as the anchor
//	monthly: same day-of-month as the anchor
//	yearly:  same month and day-of-month as the anchor
//
// A monthly task anchored on day 29-31 does not occur in months lacking
// that day; there is no nearest-day substitution. Unknown patterns
// never occur.
func OccursOn(t *models.Task, day models.Date) bool {
	if t == nil {
		return false
	}
	pattern := models.Recurrence(strings.ToLower(string(t.Recurrence)))
	if !t.IsRecurring || pattern == models.RecurrenceNone || pattern == "" {
		return (t.StartDate != nil && t.StartDate.Equal(day.Time)) ||
			(t.DueDate != nil && t.DueDate.Equal(day.Time))
	}

	anchor := anchorDate(t)
	if anchor == nil {
		return false
	}
	if day.Before(anchor.Time) {
		return false
	}
	if t.DueDate != nil && day.After(t.DueDate.Time) {
		return false
	}

	switch pattern {
	case models.RecurrenceDaily:
		return true
	case models.RecurrenceWeekly:
		return day.Weekday() == anchor.Weekday()
	case models.RecurrenceMonthly:
		return day.Day() == anchor.Day()
	case models.RecurrenceYearly:
		return day.Month() == anchor.Month() && day.Day() == anchor.Day()
	}
	return false
}

func anchorDate(t *models.Task) *models.Date {
	if t.StartDate != nil {
		return t.StartDate
	}
	if t.DueDate != nil {
		return t.DueDate
	}
	if !t.CreatedAt.IsZero() {
		d := models.DateOf(t.CreatedAt)
		return &d
	}
	return nil
}
