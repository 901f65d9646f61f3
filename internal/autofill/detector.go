package autofill

import (
	"context"
	"fmt"
	"time"

	"github.com/lance13c/shopassist/internal/logging"
)

// Detector finds checkout fields by trying selector patterns in order
type Detector struct {
	patterns []FieldPattern
}

// NewDetector creates a detector over patterns; no patterns means DefaultPatterns
func NewDetector(patterns ...FieldPattern) *Detector {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Detector{patterns: patterns}
}

// Detect returns, for each field, the element matched by the first selector
// that exists and is visible. Fields without a match are left out; an empty
// map is a normal result.
func (d *Detector) Detect(ctx context.Context, doc Document) (FieldMap, error) {
	fields := FieldMap{}

	for _, pattern := range d.patterns {
		match, err := d.findField(ctx, doc, pattern)
		if err != nil {
			return nil, err
		}
		if match != nil {
			fields = append(fields, *match)
		}
	}

	logging.Debug("Detected fields: %v", fields.Fields())
	return fields, nil
}

func (d *Detector) findField(ctx context.Context, doc Document, pattern FieldPattern) (*FieldMatch, error) {
	for _, selector := range pattern.Selectors {
		el, err := doc.Lookup(ctx, selector)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", selector, err)
		}
		if el == nil {
			continue
		}

		visible, err := doc.IsVisible(ctx, el)
		if err != nil {
			return nil, fmt.Errorf("failed to check visibility of %s: %w", selector, err)
		}
		if visible {
			return &FieldMatch{Field: pattern.Field, Selector: selector, Element: el}, nil
		}
	}
	return nil, nil
}

// WaitForFields repeats Detect until at least one field shows up, attempts
// runs out, or ctx ends. Pages that render their checkout form late need it.
func (d *Detector) WaitForFields(ctx context.Context, doc Document, attempts int, interval time.Duration) (FieldMap, error) {
	var fields FieldMap
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		fields, err = d.Detect(ctx, doc)
		if err != nil {
			return nil, err
		}
		if len(fields) > 0 || attempt == attempts {
			break
		}

		logging.Debug("No fields yet (attempt %d/%d), retrying in %v", attempt, attempts, interval)
		if err := sleepContext(ctx, interval); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
