// Package domain implements the derived-metrics and alerting engine for the
// month-by-area theft panel.
//
// # Input Panel
//
// The upstream panel build emits at most one record per (area, month) with a
// raw theft count, an exposure denominator, and a normalized risk index.
// Months are "YYYY-MM" strings, so lexicographic order is chronological
// order. A missing risk index means the area reported no usable data for
// that month; it is modeled as a nil pointer and is never the same thing as
// zero. Any computation that needs risk values runs only when every operand
// is present, otherwise its own result is absent too.
//
// # Anomaly Signals
//
// Each area's records are evaluated chronologically against a rolling
// baseline:
//
//	Spike:  current risk index > baseline * (1 + threshold), where the
//	        baseline is the mean of the observed risk values over the
//	        preceding 6 months and needs at least 3 observations.
//	Trend3: three consecutive months of strictly increasing risk index.
//	        A gap in the middle of the run breaks it regardless of what
//	        was observed earlier.
//
// The alert level is a function of how many signals fired: none, watch
// (one), warning (both).
//
// # Purity
//
// EnrichPanel, ComparePeriods, and TopRanked are pure and side-effect free.
// They recompute wholly from scratch, hold no state between calls, and are
// safe to invoke concurrently; the threshold slider in the dashboard calls
// EnrichPanel on every change. Caching, when wanted, belongs to the caller
// (see the service package).
package domain
