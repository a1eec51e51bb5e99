package mst

import (
	"context"
	"errors"
)

// ReportOptions bounds a reconciliation run so massive drift cannot
// consume unbounded memory or time.
type ReportOptions struct {
	// MaxEntries stops the walk after this many divergent keys
	// have been collected; the resulting report is marked
	// Truncated.  0 means unlimited.
	MaxEntries int
}

// A Report aggregates a diff into categorized outcomes.  Counts and
// entries cover only what the walk confirmed: a Truncated or
// Unverified report is explicitly partial, never a silent undercount.
type Report struct {
	// Entries holds the confirmed divergent keys, ascending.
	Entries []DivergentKey

	// Per-category counts over Entries.
	HashMismatch int
	MissingLeft  int
	MissingRight int

	// Truncated is set when the walk stopped at MaxEntries with
	// divergence still unexamined.
	Truncated bool

	// Unverified is set when the walk aborted before completion
	// (node fetch failure or cancellation), so some subtrees could
	// be neither confirmed identical nor confirmed divergent.  The
	// cause is returned alongside the report.
	Unverified bool
}

// Total returns the number of confirmed divergent keys.
func (r *Report) Total() int {
	return r.HashMismatch + r.MissingLeft + r.MissingRight
}

func (r *Report) add(dk DivergentKey) {
	r.Entries = append(r.Entries, dk)
	switch dk.Category {
	case HashMismatch:
		r.HashMismatch++
	case MissingLeft:
		r.MissingLeft++
	case MissingRight:
		r.MissingRight++
	}
}

// BuildReport runs a diff between two roots and classifies its output.
// On fetch failure or cancellation the partial report is returned
// together with the error, marked Unverified.
func BuildReport(
	ctx context.Context,
	left, right *Root,
	leftFetch, rightFetch NodeFetcher,
	options ReportOptions,
) (*Report, error) {
	report := Report{}
	err := DiffRoots(ctx, left, right, leftFetch, rightFetch, func(dk DivergentKey) (bool, error) {
		report.add(dk)
		if options.MaxEntries > 0 && len(report.Entries) >= options.MaxEntries {
			report.Truncated = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.Unverified = true
		}
		return &report, err
	}
	return &report, nil
}

// Reconcile diffs two local trees and reports the result.  The
// shorthand for the common single-process case.
func Reconcile(ctx context.Context, left, right *Tree, options ReportOptions) (*Report, error) {
	return BuildReport(ctx, left.version(), right.version(), left.Fetcher(), right.Fetcher(), options)
}
