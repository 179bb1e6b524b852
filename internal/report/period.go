// Package report renders an aggregation result and its patrol list into
// downloadable CSV and HTML documents, and resolves the named reporting
// periods offered by the UI into concrete date ranges. Like the aggregate
// package it is pure; the current time is always passed in.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/streetwatch/patrol-log/internal/aggregate"
)

// Named period kinds accepted by ResolvePeriod. Any four-digit year is
// also accepted and produces an annual report for that year.
const (
	PeriodLastMonth    = "lastMonth"
	PeriodLast3Months  = "last3Months"
	PeriodYearToDate   = "yearToDate"
	PeriodPreviousYear = "previousYear"
)

// Period is a resolved reporting window plus its presentation strings.
type Period struct {
	Range          aggregate.Range
	Title          string
	DateRangeLabel string
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func longDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

func rangeLabel(start, end time.Time) string {
	return longDate(start) + " - " + longDate(end)
}

// ResolvePeriod turns a period name (or a literal year) into a Period
// relative to now. Unknown values return an error so handlers can reject
// them as invalid input.
func ResolvePeriod(kind string, now time.Time) (Period, error) {
	now = now.UTC()
	thisMonth := startOfMonth(now)
	switch kind {
	case PeriodLastMonth:
		start := thisMonth.AddDate(0, -1, 0)
		end := thisMonth.Add(-time.Nanosecond)
		return Period{
			Range:          aggregate.Range{Start: start, End: end},
			Title:          start.Format("January 2006") + " Report",
			DateRangeLabel: rangeLabel(start, end),
		}, nil
	case PeriodLast3Months:
		start := thisMonth.AddDate(0, -3, 0)
		end := thisMonth.Add(-time.Nanosecond)
		return Period{
			Range:          aggregate.Range{Start: start, End: end},
			Title:          "Last 3 Months Report",
			DateRangeLabel: rangeLabel(start, end),
		}, nil
	case PeriodYearToDate:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{
			Range:          aggregate.Range{Start: start, End: now},
			Title:          fmt.Sprintf("%d Year to Date Report", now.Year()),
			DateRangeLabel: rangeLabel(start, now),
		}, nil
	case PeriodPreviousYear:
		return yearPeriod(now.Year() - 1), nil
	default:
		year, err := strconv.Atoi(kind)
		if err != nil || year < 1000 || year > 9999 {
			return Period{}, fmt.Errorf("unknown report period %q", kind)
		}
		return yearPeriod(year), nil
	}
}

func yearPeriod(year int) Period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	return Period{
		Range:          aggregate.Range{Start: start, End: end},
		Title:          fmt.Sprintf("%d Annual Report", year),
		DateRangeLabel: rangeLabel(start, end),
	}
}

// ExportFilename derives a download file name from a report title: runs of
// whitespace become single underscores.
func ExportFilename(title, ext string) string {
	return strings.Join(strings.Fields(title), "_") + "." + ext
}
