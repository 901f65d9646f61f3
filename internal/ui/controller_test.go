package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/messaging"
	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/internal/store"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []messaging.Message
	err  error
}

func (s *recordingSink) PostMessage(ctx context.Context, msg messaging.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) Messages() []messaging.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messaging.Message(nil), s.msgs...)
}

func (s *recordingSink) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func newController(t *testing.T) *Controller {
	t.Helper()
	c, _ := newSinkController(t)
	return c
}

// newSinkController returns a controller whose messages land in the sink
func newSinkController(t *testing.T) (*Controller, *recordingSink) {
	t.Helper()
	db, err := database.New("sqlite", database.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sink := &recordingSink{}
	fillCfg := config.FillConfig{DetectAttempts: 1, DetectInterval: time.Millisecond, BlurDelay: time.Millisecond}
	svc := services.NewAssistantService(db, fillCfg, db, sink)
	return NewController(svc, nil, nil), sink
}

func currentToast(t *testing.T, c *Controller) string {
	t.Helper()
	toast, ok := c.Toasts().Current()
	require.True(t, ok, "expected a toast")
	return toast.Message
}

func TestToggle_SavesAndAnnounces(t *testing.T) {
	c, sink := newSinkController(t)
	ctx := context.Background()

	on, err := c.Toggle(ctx, ToggleAutoFill)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, "Auto-Fill Mode diaktifkan", currentToast(t, c))

	msgs := sink.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, messaging.ActionUpdateSettings, msgs[0].Action)
	var sent store.Settings
	require.NoError(t, msgs[0].Decode(&sent))
	assert.True(t, sent.AutoFillEnabled)

	settings, err := c.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.AutoFillEnabled)
	assert.False(t, settings.SmartNavEnabled)

	on, err = c.Toggle(ctx, ToggleAutoFill)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, "Auto-Fill Mode dinonaktifkan", currentToast(t, c))

	_, err = c.Toggle(ctx, ToggleSmartNav)
	require.NoError(t, err)
	assert.Equal(t, "Smart Navigation diaktifkan", currentToast(t, c))

	msgs = sink.Messages()
	require.Len(t, msgs, 3)
	require.NoError(t, msgs[2].Decode(&sent))
	assert.False(t, sent.AutoFillEnabled)
	assert.True(t, sent.SmartNavEnabled)
}

func TestNavigate(t *testing.T) {
	c := newController(t)
	assert.Equal(t, TabHome, c.Tab())
	c.Navigate(TabSettings)
	assert.Equal(t, TabSettings, c.Tab())
	assert.Equal(t, "Pengaturan", c.Tab().String())
}

func TestSaveProfile_RejectsIncompleteForm(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	require.NoError(t, c.OpenProfileModal(ctx))

	_, err := c.SaveProfile(ctx, ProfileForm{Name: "Budi"})
	var verr *store.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, store.MsgProfileRequired, currentToast(t, c))
	assert.True(t, c.ModalOpen())
	assert.Equal(t, "Budi", c.Form().Name)

	_, ok, err := c.Profile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveProfile_ClosesModal(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	require.NoError(t, c.OpenProfileModal(ctx))

	saved, err := c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123", Address: "Jl. Merdeka 1"})
	require.NoError(t, err)
	assert.Equal(t, "Jl. Merdeka 1", saved.Address)
	assert.False(t, c.ModalOpen())
	assert.Equal(t, MsgProfileSaved, currentToast(t, c))
}

func TestOpenProfileModal_LoadsStoredProfile(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	_, err := c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123", PostalCode: "10110"})
	require.NoError(t, err)

	c.form = ProfileForm{}
	require.NoError(t, c.OpenProfileModal(ctx))
	assert.True(t, c.ModalOpen())
	assert.Equal(t, ProfileForm{Name: "Budi", Phone: "08123", PostalCode: "10110"}, c.Form())

	c.CloseModal()
	assert.False(t, c.ModalOpen())
}

func TestTestAutoFill_RequiresProfile(t *testing.T) {
	c := newController(t)
	ctx := context.Background()

	_, err := c.TestAutoFill(ctx)
	assert.ErrorIs(t, err, services.ErrNoProfile)
	assert.Equal(t, MsgFillProfileFirst, currentToast(t, c))
	assert.True(t, c.ModalOpen())
}

func TestTestAutoFill_FillsSampleCheckout(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	_, err := c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123"})
	require.NoError(t, err)
	_, err = c.SaveSettings(ctx, 0, "cod")
	require.NoError(t, err)

	result, err := c.TestAutoFill(ctx)
	require.NoError(t, err)
	assert.True(t, result.Completed())
	assert.Equal(t, []autofill.Field{autofill.FieldName, autofill.FieldPhone}, result.Filled)
	assert.Equal(t, MsgTestPassed, currentToast(t, c))
	assert.False(t, c.Filling())

	history, err := c.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, services.SourceTest, history[0].Source)
}

func TestTestAutoFill_OneAtATime(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	_, err := c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123"})
	require.NoError(t, err)

	require.True(t, c.beginFill())
	_, err = c.TestAutoFill(ctx)
	assert.ErrorIs(t, err, ErrFillInProgress)
	assert.Equal(t, MsgFillInProgress, currentToast(t, c))
	c.endFill()
}

func TestTestAutoFill_ReportsBrokenCheckout(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	_, err := c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123"})
	require.NoError(t, err)

	c.checkout = func() (autofill.Document, error) { return nil, errors.New("page gone") }
	_, err = c.TestAutoFill(ctx)
	assert.ErrorContains(t, err, "page gone")
	assert.False(t, c.Filling())
}

func TestQuickAction_GateOrder(t *testing.T) {
	c, sink := newSinkController(t)
	ctx := context.Background()

	err := c.QuickAction(ctx)
	assert.ErrorIs(t, err, services.ErrAutoFillDisabled)
	assert.Equal(t, MsgEnableAutoFill, currentToast(t, c))
	assert.False(t, c.ModalOpen())

	_, err = c.Toggle(ctx, ToggleAutoFill)
	require.NoError(t, err)
	err = c.QuickAction(ctx)
	assert.ErrorIs(t, err, services.ErrNoProfile)
	assert.Equal(t, MsgCompleteProfile, currentToast(t, c))
	assert.True(t, c.ModalOpen())

	_, err = c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123"})
	require.NoError(t, err)
	require.NoError(t, c.QuickAction(ctx))
	assert.Equal(t, MsgAutoFillReady, currentToast(t, c))

	var triggers []messaging.Message
	for _, msg := range sink.Messages() {
		if msg.Action == messaging.ActionTriggerAutoFill {
			triggers = append(triggers, msg)
		}
	}
	require.Len(t, triggers, 1)
	var profile store.Profile
	require.NoError(t, triggers[0].Decode(&profile))
	assert.Equal(t, "Budi", profile.Name)
	assert.Equal(t, "08123", profile.Phone)
}

func TestQuickAction_ReportsUndelivered(t *testing.T) {
	c, sink := newSinkController(t)
	ctx := context.Background()

	_, err := c.Toggle(ctx, ToggleAutoFill)
	require.NoError(t, err)
	_, err = c.SaveProfile(ctx, ProfileForm{Name: "Budi", Phone: "08123"})
	require.NoError(t, err)

	sink.fail(errors.New("hub not running"))
	err = c.QuickAction(ctx)
	require.Error(t, err)
	assert.NotEqual(t, MsgAutoFillReady, currentToast(t, c))
	assert.Contains(t, currentToast(t, c), "hub not running")
}

func TestSaveSettings_KeepsSwitches(t *testing.T) {
	c := newController(t)
	ctx := context.Background()
	_, err := c.Toggle(ctx, ToggleSmartNav)
	require.NoError(t, err)

	saved, err := c.SaveSettings(ctx, 300, "ewallet")
	require.NoError(t, err)
	assert.True(t, saved.SmartNavEnabled)
	assert.Equal(t, 300, saved.FillDelayMs)

	_, err = c.SaveSettings(ctx, 300, "barter")
	assert.Error(t, err)
	assert.Equal(t, store.MsgUnknownPayment, currentToast(t, c))
}

func TestManageAddresses(t *testing.T) {
	c := newController(t)
	c.ManageAddresses()
	assert.Equal(t, MsgAddressesComing, currentToast(t, c))
}

func TestToaster_Expires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	toaster := NewToaster(ToastDuration)
	toaster.now = func() time.Time { return now }

	toaster.Show("first")
	toaster.Show("second")
	toast, ok := toaster.Current()
	require.True(t, ok)
	assert.Equal(t, "second", toast.Message)

	now = now.Add(ToastDuration - time.Millisecond)
	_, ok = toaster.Current()
	assert.True(t, ok)

	now = now.Add(time.Millisecond)
	_, ok = toaster.Current()
	assert.False(t, ok)
}

func TestModel_NavigatesAndShowsToast(t *testing.T) {
	c := newController(t)
	m := NewModel(c)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabHistory, c.Tab())
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabHome, c.Tab())

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	assert.Contains(t, m.View(), MsgAddressesComing)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.showTutorial)
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, m.showTutorial)
}

func TestModel_ModalEditsProfile(t *testing.T) {
	c := newController(t)
	m := NewModel(c)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	require.NotNil(t, cmd)
	done := cmd()
	_, _ = m.Update(done)
	require.True(t, c.ModalOpen())
	assert.True(t, m.inputs[fieldName].Focused())

	for _, r := range "Budi" {
		_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	for _, r := range "08123" {
		_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, ProfileForm{Name: "Budi", Phone: "08123"}, m.formValues())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	done = cmd()
	_, _ = m.Update(done)
	assert.False(t, c.ModalOpen())
	assert.False(t, m.inputsFocused())

	p, ok, err := c.Profile(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "08123", p.Phone)
}

func TestNextPaymentMethod(t *testing.T) {
	assert.Equal(t, "transfer", nextPaymentMethod("cod"))
	assert.Equal(t, "cod", nextPaymentMethod("paylater"))
	assert.Equal(t, "cod", nextPaymentMethod("unknown"))
}

func TestRenderTutorial(t *testing.T) {
	out := RenderTutorial(80, TutorialPlain)
	assert.Contains(t, out, "Penggunaan")
	assert.Contains(t, out, "TikTok Shop")
}
