package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/store"
)

var (
	ErrNoProfile        = errors.New("no profile saved")
	ErrAutoFillDisabled = errors.New("auto-fill is disabled")
)

// Fill sources recorded in history
const (
	SourceBrowser = "browser"
	SourceHTML    = "html"
	SourceTest    = "test"
)

// RunRecorder persists fill attempts
type RunRecorder interface {
	SaveFillRun(ctx context.Context, run *database.FillRun) error
	RecentFillRuns(ctx context.Context, limit int) ([]database.FillRun, error)
}

// FillRequest describes one fill attempt
type FillRequest struct {
	Document autofill.Document
	URL      string
	Source   string
	// RequireAutoFill refuses the fill while the auto-fill toggle is off
	RequireAutoFill bool
}

// AssistantService ties the stores, the fill engine, history and
// messaging together for the CLI, the HTTP API and the terminal UI
type AssistantService struct {
	profiles *store.ProfileStore
	settings *store.SettingsStore
	engine   *autofill.Engine
	fillCfg  config.FillConfig
	runs     RunRecorder
	sink     messaging.Sink
	now      func() time.Time
}

// NewAssistantService creates the service. runs and sink may be nil.
func NewAssistantService(kv store.KV, fillCfg config.FillConfig, runs RunRecorder, sink messaging.Sink) *AssistantService {
	engine := autofill.NewEngine(autofill.NewDetector(), autofill.NewExecutor(fillCfg.BlurDelay))
	return &AssistantService{
		profiles: store.NewProfileStore(kv),
		settings: store.NewSettingsStore(kv),
		engine:   engine,
		fillCfg:  fillCfg,
		runs:     runs,
		sink:     sink,
		now:      time.Now,
	}
}

// Profile returns the saved profile or ErrNoProfile
func (s *AssistantService) Profile(ctx context.Context) (store.Profile, error) {
	p, err := s.profiles.Load(ctx)
	if err != nil {
		return store.Profile{}, err
	}
	if p == nil {
		return store.Profile{}, ErrNoProfile
	}
	return *p, nil
}

// SaveProfile validates and stores p
func (s *AssistantService) SaveProfile(ctx context.Context, p store.Profile) (store.Profile, error) {
	saved, err := s.profiles.Save(ctx, p)
	if err != nil {
		return store.Profile{}, err
	}
	logging.Info("Profile saved for %s", saved.Name)
	return saved, nil
}

// Settings returns the saved settings, or the defaults when none are saved
func (s *AssistantService) Settings(ctx context.Context) (store.Settings, error) {
	return s.settings.LoadOrDefault(ctx)
}

// SaveSettings stores settings and announces them with updateSettings.
// Delivery failures are logged; the save itself stands.
func (s *AssistantService) SaveSettings(ctx context.Context, settings store.Settings) (store.Settings, error) {
	saved, err := s.settings.Save(ctx, settings)
	if err != nil {
		return store.Settings{}, err
	}

	if s.sink != nil {
		if err := messaging.UpdateSettings(ctx, s.sink, saved); err != nil {
			logging.Warn("Settings saved but not delivered: %v", err)
		}
	}
	return saved, nil
}

// readyProfile loads the profile and settings a fill needs, applying the
// auto-fill gate first when asked to
func (s *AssistantService) readyProfile(ctx context.Context, requireAutoFill bool) (store.Profile, store.Settings, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return store.Profile{}, store.Settings{}, err
	}
	if requireAutoFill && !settings.AutoFillEnabled {
		return store.Profile{}, settings, ErrAutoFillDisabled
	}

	profile, err := s.Profile(ctx)
	if err != nil {
		return store.Profile{}, settings, err
	}
	return profile, settings, nil
}

// Trigger asks listening pages to fill themselves with the saved profile
func (s *AssistantService) Trigger(ctx context.Context) (store.Profile, error) {
	profile, _, err := s.readyProfile(ctx, true)
	if err != nil {
		return store.Profile{}, err
	}

	if s.sink != nil {
		if err := messaging.TriggerAutoFill(ctx, s.sink, profile); err != nil {
			return profile, fmt.Errorf("failed to trigger auto-fill: %w", err)
		}
	}
	return profile, nil
}

// Detect finds the fields of doc. With smart navigation on, detection is
// retried while the page is still rendering.
func (s *AssistantService) Detect(ctx context.Context, doc autofill.Document) (autofill.FieldMap, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return s.detect(ctx, doc, settings)
}

func (s *AssistantService) detect(ctx context.Context, doc autofill.Document, settings store.Settings) (autofill.FieldMap, error) {
	if settings.SmartNavEnabled {
		return s.engine.Detector().WaitForFields(ctx, doc, s.fillCfg.DetectAttempts, s.fillCfg.DetectInterval)
	}
	return s.engine.Detector().Detect(ctx, doc)
}

// Fill runs one fill attempt and records it in history. The returned run is
// nil when the attempt was refused before touching the document.
func (s *AssistantService) Fill(ctx context.Context, req FillRequest) (autofill.Result, *database.FillRun, error) {
	profile, settings, err := s.readyProfile(ctx, req.RequireAutoFill)
	if err != nil {
		return autofill.Result{}, nil, err
	}

	start := s.now()
	fields, err := s.detect(ctx, req.Document, settings)
	var result autofill.Result
	if err == nil {
		result, err = s.engine.FillFields(ctx, fields, profile, settings.FillDelay())
	}

	run := &database.FillRun{
		ID:         uuid.NewString(),
		URL:        req.URL,
		Source:     req.Source,
		Detected:   autofill.FieldNames(result.Detected),
		Filled:     autofill.FieldNames(result.Filled),
		DurationMs: s.now().Sub(start).Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	if err != nil {
		run.Error = err.Error()
	}
	s.record(ctx, run)

	if err != nil {
		return result, run, fmt.Errorf("auto-fill failed: %w", err)
	}
	logging.Info("Filled %v on %s in %dms", run.Filled, req.URL, run.DurationMs)
	return result, run, nil
}

func (s *AssistantService) record(ctx context.Context, run *database.FillRun) {
	if s.runs == nil {
		return
	}
	// the fill context may already be cancelled; history is still written
	if err := s.runs.SaveFillRun(context.WithoutCancel(ctx), run); err != nil {
		logging.Warn("Failed to record fill run %s: %v", run.ID, err)
	}
}

// History returns the most recent fill runs, newest first
func (s *AssistantService) History(ctx context.Context, limit int) ([]database.FillRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.RecentFillRuns(ctx, limit)
}
