package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lance13c/shopassist/internal/logging"
)

// Defaults used when no settings record exists
const (
	DefaultFillDelayMs   = 100
	DefaultPaymentMethod = "cod"
)

// MsgUnknownPayment is shown when a settings save names an unknown method
const MsgUnknownPayment = "Metode pembayaran tidak dikenal"

// PaymentMethods lists the selectable payment methods in display order
var PaymentMethods = []string{"cod", "transfer", "ewallet", "paylater"}

// ValidPaymentMethod reports whether method is one of PaymentMethods
func ValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Settings holds the user's auto-fill preferences
type Settings struct {
	AutoFillEnabled bool      `json:"autoFill"`
	SmartNavEnabled bool      `json:"smartNav"`
	FillDelayMs     int       `json:"fillDelay"`
	PaymentMethod   string    `json:"paymentMethod"`
	SavedAt         time.Time `json:"savedAt"`
}

// DefaultSettings returns the settings in effect before anything is saved
func DefaultSettings() Settings {
	return Settings{
		FillDelayMs:   DefaultFillDelayMs,
		PaymentMethod: DefaultPaymentMethod,
	}
}

// FillDelay returns the inter-field delay as a duration
func (s Settings) FillDelay() time.Duration {
	return time.Duration(s.FillDelayMs) * time.Millisecond
}

func (s *Settings) normalize() {
	if s.FillDelayMs < 0 {
		s.FillDelayMs = DefaultFillDelayMs
	}
	if s.PaymentMethod == "" {
		s.PaymentMethod = DefaultPaymentMethod
	}
}

// SettingsStore owns the persisted settings record
type SettingsStore struct {
	kv  KV
	now func() time.Time
}

// NewSettingsStore creates a settings store over kv
func NewSettingsStore(kv KV) *SettingsStore {
	return &SettingsStore{kv: kv, now: time.Now}
}

// Save overwrites the stored settings and returns what was written
func (s *SettingsStore) Save(ctx context.Context, settings Settings) (Settings, error) {
	settings.normalize()
	if !ValidPaymentMethod(settings.PaymentMethod) {
		return Settings{}, &ValidationError{Message: MsgUnknownPayment}
	}
	settings.SavedAt = s.now().UTC()

	data, err := json.Marshal(settings)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := s.kv.Set(ctx, SettingsKey, string(data)); err != nil {
		return Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}

	logging.Debug("Settings saved: autoFill=%t smartNav=%t delay=%dms payment=%s",
		settings.AutoFillEnabled, settings.SmartNavEnabled, settings.FillDelayMs, settings.PaymentMethod)
	return settings, nil
}

// Load returns the stored settings, or nil when none have been saved.
// A record that no longer parses is treated as absent.
func (s *SettingsStore) Load(ctx context.Context) (*Settings, error) {
	raw, found, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !found {
		return nil, nil
	}

	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		logging.Warn("Ignoring malformed %s record: %v", SettingsKey, err)
		return nil, nil
	}
	settings.normalize()

	return &settings, nil
}

// LoadOrDefault returns the stored settings or the defaults
func (s *SettingsStore) LoadOrDefault(ctx context.Context) (Settings, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if settings == nil {
		return DefaultSettings(), nil
	}
	return *settings, nil
}
