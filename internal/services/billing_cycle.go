// Package services provides business logic and orchestration services.
//
// This file holds the billing cycle arithmetic. Each cycle has a fixed length
// in months; boundaries are anchored on the subscription start date
// and clamp to the last day of shorter months.
package services

import (
	"fmt"

	"billflow/internal/core"
)

// CycleMonths returns the length of a billing cycle in months.
func CycleMonths(cycle core.BillingCycle) (int, error) {
	switch cycle {
	case core.Monthly:
		return 1, nil
	case core.Quarterly:
		return 3, nil
	case core.Semiannual:
		return 6, nil
	case core.Yearly:
		return 12, nil
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedCycle, cycle)
}

// Advance moves date forward by one cycle.
func Advance(date core.Date, cycle core.BillingCycle) (core.Date, error) {
	n, err := CycleMonths(cycle)
	if err != nil {
		return core.Date{}, err
	}
	return date.AddMonths(n), nil
}

// Backdate moves next back by one cycle, never earlier than start.
func Backdate(next, start core.Date, cycle core.BillingCycle) (core.Date, error) {
	n, err := CycleMonths(cycle)
	if err != nil {
		return core.Date{}, err
	}
	prev := next.AddMonths(-n)
	if prev.Before(start) {
		return start, nil
	}
	return prev, nil
}

// CycleBoundary returns the k-th cycle boundary anchored on start.
func CycleBoundary(start core.Date, cycle core.BillingCycle, k int) (core.Date, error) {
	n, err := CycleMonths(cycle)
	if err != nil {
		return core.Date{}, err
	}
	return start.AddMonths(k * n), nil
}

// AdvanceFromStart returns the first boundary start + k cycles that is
// strictly after asOf; a start date after asOf is returned as is. The index is
// derived from the elapsed months so the cost does not grow with the age of
// the subscription.
func AdvanceFromStart(start, asOf core.Date, cycle core.BillingCycle) (core.Date, error) {
	n, err := CycleMonths(cycle)
	if err != nil {
		return core.Date{}, err
	}
	if start.After(asOf) {
		return start, nil
	}

	k := 1
	if elapsed := core.MonthsBetween(start, asOf); elapsed > n {
		k = elapsed / n
	}
	// k may undershoot by one cycle because the day of month is ignored above.
	next := start.AddMonths(k * n)
	for !next.After(asOf) {
		k++
		next = start.AddMonths(k * n)
	}
	return next, nil
}

// IsDueOrOverdue reports whether date is today or earlier.
func IsDueOrOverdue(date, today core.Date) bool {
	return !date.After(today)
}
