package inventory

import (
	"slices"
	"time"
)

// WeekBuckets groups records into this week, last week and everything older.
type WeekBuckets[T any] struct {
	ThisWeek []T `json:"this_week"`
	LastWeek []T `json:"last_week"`
	Older    []T `json:"older"`
}

// Len returns the number of records across all buckets.
func (b WeekBuckets[T]) Len() int {
	return len(b.ThisWeek) + len(b.LastWeek) + len(b.Older)
}

// MonthBuckets groups records into this month, last month and everything older.
type MonthBuckets[T any] struct {
	ThisMonth []T `json:"this_month"`
	LastMonth []T `json:"last_month"`
	Older     []T `json:"older"`
}

// Len returns the number of records across all buckets.
func (b MonthBuckets[T]) Len() int {
	return len(b.ThisMonth) + len(b.LastMonth) + len(b.Older)
}

// StartOfWeek returns Monday 00:00 of the week containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Mon=0 ... Sun=6
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// StartOfMonth returns the first instant of t's month, in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// PartitionByWeek splits records into this week, last week and older,
// relative to now. Weeks start Monday 00:00 in now's location. Records later
// than now but still inside the current week count as this week; records
// past the end of the current week fall into older. Order within each bucket
// follows the input.
func PartitionByWeek[T any](records []T, at func(T) time.Time, now time.Time) WeekBuckets[T] {
	thisStart := StartOfWeek(now)
	nextStart := thisStart.AddDate(0, 0, 7)
	lastStart := thisStart.AddDate(0, 0, -7)

	b := WeekBuckets[T]{ThisWeek: []T{}, LastWeek: []T{}, Older: []T{}}
	for _, r := range records {
		t := at(r).In(now.Location())
		switch {
		case !t.Before(thisStart) && t.Before(nextStart):
			b.ThisWeek = append(b.ThisWeek, r)
		case !t.Before(lastStart) && t.Before(thisStart):
			b.LastWeek = append(b.LastWeek, r)
		default:
			b.Older = append(b.Older, r)
		}
	}
	return b
}

// PartitionByMonth splits records into this month, last month and older,
// relative to now's calendar month.
func PartitionByMonth[T any](records []T, at func(T) time.Time, now time.Time) MonthBuckets[T] {
	thisStart := StartOfMonth(now)
	nextStart := thisStart.AddDate(0, 1, 0)
	lastStart := thisStart.AddDate(0, -1, 0)

	b := MonthBuckets[T]{ThisMonth: []T{}, LastMonth: []T{}, Older: []T{}}
	for _, r := range records {
		t := at(r).In(now.Location())
		switch {
		case !t.Before(thisStart) && t.Before(nextStart):
			b.ThisMonth = append(b.ThisMonth, r)
		case !t.Before(lastStart) && t.Before(thisStart):
			b.LastMonth = append(b.LastMonth, r)
		default:
			b.Older = append(b.Older, r)
		}
	}
	return b
}

// Recent returns up to n records, newest first. The input is not modified.
// A negative n returns every record.
func Recent[T any](records []T, at func(T) time.Time, n int) []T {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return at(b).Compare(at(a))
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []T{}
	}
	return sorted
}
