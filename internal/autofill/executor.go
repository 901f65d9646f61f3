package autofill

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/store"
)

// DefaultBlurDelay is how long a filled element keeps focus
const DefaultBlurDelay = 50 * time.Millisecond

// FillReport lists what a fill wrote and what it passed over
type FillReport struct {
	Filled  []Field
	Skipped []Field
}

// Executor writes profile values into detected elements
type Executor struct {
	blurDelay time.Duration
}

// NewExecutor creates an executor; a non-positive blurDelay uses DefaultBlurDelay
func NewExecutor(blurDelay time.Duration) *Executor {
	if blurDelay <= 0 {
		blurDelay = DefaultBlurDelay
	}
	return &Executor{blurDelay: blurDelay}
}

// observerEvents is what host validation sees after every write
func observerEvents(value string) []Event {
	return []Event{
		{Kind: EventInput, Data: value},
		{Kind: EventChange},
		{Kind: EventBlur},
	}
}

// Fill writes the profile into fields in map order. Fields whose profile
// value is empty are skipped. The wait before each written field grows by
// delay: the first write happens at once, the second after delay, the third
// after a further 2*delay, and so on. Fill returns once every delayed blur
// has run; the first error stops the fill and is returned.
func (e *Executor) Fill(ctx context.Context, fields FieldMap, profile store.Profile, delay time.Duration) (FillReport, error) {
	var report FillReport
	var blurs errgroup.Group
	var wait time.Duration

	for _, match := range fields {
		value := ProfileValue(profile, match.Field)
		if value == "" {
			report.Skipped = append(report.Skipped, match.Field)
			continue
		}

		if err := sleepContext(ctx, wait); err != nil {
			blurs.Wait()
			return report, err
		}

		if err := e.fillField(ctx, &blurs, match, value); err != nil {
			blurs.Wait()
			return report, fmt.Errorf("failed to fill %s: %w", match.Field, err)
		}
		report.Filled = append(report.Filled, match.Field)
		wait += delay
	}

	if err := blurs.Wait(); err != nil {
		return report, fmt.Errorf("failed to blur filled field: %w", err)
	}
	return report, nil
}

func (e *Executor) fillField(ctx context.Context, blurs *errgroup.Group, match FieldMatch, value string) error {
	el := match.Element
	logging.Debug("Filling %s with: %s", el.Describe(), value)

	if err := el.Focus(ctx); err != nil {
		return err
	}
	if err := el.SetValue(ctx, value); err != nil {
		return err
	}
	if err := el.Notify(ctx, observerEvents(value)); err != nil {
		return err
	}

	blurs.Go(func() error {
		if err := sleepContext(ctx, e.blurDelay); err != nil {
			return err
		}
		return el.Blur(ctx)
	})
	return nil
}
