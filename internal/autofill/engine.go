package autofill

import (
	"context"
	"time"

	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/store"
)

// Result summarizes one FillForm call
type Result struct {
	Detected []Field
	Filled   []Field
	Skipped  []Field
	Duration time.Duration
}

// Completed reports whether any field was found to fill
func (r Result) Completed() bool {
	return len(r.Detected) > 0
}

// Engine runs detection followed by filling
type Engine struct {
	detector *Detector
	executor *Executor
}

// NewEngine wires a detector and an executor
func NewEngine(detector *Detector, executor *Executor) *Engine {
	return &Engine{detector: detector, executor: executor}
}

// Detector exposes the engine's detector
func (e *Engine) Detector() *Detector {
	return e.detector
}

// FillForm detects the fields of doc once and fills them from profile
func (e *Engine) FillForm(ctx context.Context, doc Document, profile store.Profile, delay time.Duration) (Result, error) {
	fields, err := e.detector.Detect(ctx, doc)
	if err != nil {
		return Result{}, err
	}
	return e.FillFields(ctx, fields, profile, delay)
}

// FillFields fills an already detected field map
func (e *Engine) FillFields(ctx context.Context, fields FieldMap, profile store.Profile, delay time.Duration) (Result, error) {
	start := time.Now()
	logging.Debug("Starting auto-fill process...")

	result := Result{Detected: fields.Fields()}
	if len(fields) == 0 {
		logging.Debug("No form fields detected")
		return result, nil
	}

	report, err := e.executor.Fill(ctx, fields, profile, delay)
	result.Filled = report.Filled
	result.Skipped = report.Skipped
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	logging.Debug("Auto-fill completed in %v", result.Duration)
	return result, nil
}
