package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lance13c/shopassist/internal/autofill"
	"github.com/lance13c/shopassist/internal/browser"
	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/internal/store"
	"github.com/lance13c/shopassist/web"
)

// Messages shown as toasts
const (
	MsgProfileSaved       = "Profile berhasil disimpan"
	MsgFillProfileFirst   = "Isi profile terlebih dahulu"
	MsgTesting            = "Testing auto-fill..."
	MsgTestPassed         = "Test berhasil! ✓"
	MsgEnableAutoFill     = "Aktifkan Auto-Fill terlebih dahulu"
	MsgCompleteProfile    = "Lengkapi profile terlebih dahulu"
	MsgAutoFillReady      = "Auto-fill siap digunakan!"
	MsgAddressesComing    = "Fitur alamat tersimpan akan segera hadir"
	MsgSettingsSaved      = "Pengaturan disimpan"
	MsgFillInProgress     = "Auto-fill sedang berjalan"
	toggleOnSuffix        = "diaktifkan"
	toggleOffSuffix       = "dinonaktifkan"
	testFailedPrefix      = "Test gagal"
	quickActionFailPrefix = "Auto-fill gagal"
)

// ErrFillInProgress is returned when a fill is requested while one runs
var ErrFillInProgress = errors.New("a fill is already running")

// Tab is a navigation item
type Tab int

const (
	TabHome Tab = iota
	TabHistory
	TabSettings
)

// Tabs lists the navigation items in display order
var Tabs = []Tab{TabHome, TabHistory, TabSettings}

func (t Tab) String() string {
	switch t {
	case TabHome:
		return "Beranda"
	case TabHistory:
		return "Riwayat"
	case TabSettings:
		return "Pengaturan"
	default:
		return "?"
	}
}

// Toggle names a settings switch
type Toggle int

const (
	ToggleAutoFill Toggle = iota
	ToggleSmartNav
)

// Label is the switch's visible label
func (t Toggle) Label() string {
	if t == ToggleSmartNav {
		return "Smart Navigation"
	}
	return "Auto-Fill Mode"
}

// ProfileForm holds the modal's edit buffers
type ProfileForm struct {
	Name       string
	Phone      string
	Address    string
	PostalCode string
}

func formFromProfile(p store.Profile) ProfileForm {
	return ProfileForm{Name: p.Name, Phone: p.Phone, Address: p.Address, PostalCode: p.PostalCode}
}

// Profile converts the form into a profile record
func (f ProfileForm) Profile() store.Profile {
	return store.Profile{Name: f.Name, Phone: f.Phone, Address: f.Address, PostalCode: f.PostalCode}
}

// CheckoutSource builds the document a test fill runs against
type CheckoutSource func() (autofill.Document, error)

// SampleCheckout parses the built-in checkout page
func SampleCheckout() (autofill.Document, error) {
	html, err := web.CheckoutHTML()
	if err != nil {
		return nil, err
	}
	return browser.ParseStaticDocument(html)
}

// Controller wires user actions to the stores, the fill engine and the
// toast area. It holds view state only; records live in the stores.
type Controller struct {
	svc      *services.AssistantService
	toasts   *Toaster
	checkout CheckoutSource

	mu        sync.Mutex
	tab       Tab
	modalOpen bool
	form      ProfileForm
	filling   bool
}

// NewController creates a controller over svc. A nil checkout uses the
// built-in sample form.
func NewController(svc *services.AssistantService, toasts *Toaster, checkout CheckoutSource) *Controller {
	if toasts == nil {
		toasts = NewToaster(ToastDuration)
	}
	if checkout == nil {
		checkout = SampleCheckout
	}
	return &Controller{svc: svc, toasts: toasts, checkout: checkout}
}

// Toasts returns the toast area
func (c *Controller) Toasts() *Toaster {
	return c.toasts
}

// Tab returns the active navigation item
func (c *Controller) Tab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// Navigate makes tab the only active navigation item
func (c *Controller) Navigate(tab Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = tab
}

// ModalOpen reports whether the profile modal is showing
func (c *Controller) ModalOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modalOpen
}

// Form returns the modal's edit buffers
func (c *Controller) Form() ProfileForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Settings returns the current settings, or the defaults
func (c *Controller) Settings(ctx context.Context) (store.Settings, error) {
	return c.svc.Settings(ctx)
}

// Profile returns the saved profile; ok is false when there is none
func (c *Controller) Profile(ctx context.Context) (store.Profile, bool, error) {
	p, err := c.svc.Profile(ctx)
	if errors.Is(err, services.ErrNoProfile) {
		return store.Profile{}, false, nil
	}
	if err != nil {
		return store.Profile{}, false, err
	}
	return p, true, nil
}

// Toggle flips a switch, saves the settings and announces the new state
func (c *Controller) Toggle(ctx context.Context, which Toggle) (bool, error) {
	settings, err := c.svc.Settings(ctx)
	if err != nil {
		return false, err
	}

	var on bool
	switch which {
	case ToggleAutoFill:
		settings.AutoFillEnabled = !settings.AutoFillEnabled
		on = settings.AutoFillEnabled
	case ToggleSmartNav:
		settings.SmartNavEnabled = !settings.SmartNavEnabled
		on = settings.SmartNavEnabled
	}

	if _, err := c.svc.SaveSettings(ctx, settings); err != nil {
		c.toasts.Show(err.Error())
		return !on, err
	}

	suffix := toggleOffSuffix
	if on {
		suffix = toggleOnSuffix
	}
	c.toasts.Show(which.Label() + " " + suffix)
	return on, nil
}

// SaveSettings stores the fill delay and payment method, keeping the
// switches as they are
func (c *Controller) SaveSettings(ctx context.Context, delayMs int, paymentMethod string) (store.Settings, error) {
	settings, err := c.svc.Settings(ctx)
	if err != nil {
		return store.Settings{}, err
	}
	settings.FillDelayMs = delayMs
	settings.PaymentMethod = paymentMethod

	saved, err := c.svc.SaveSettings(ctx, settings)
	if err != nil {
		c.toasts.Show(userMessage(err))
		return store.Settings{}, err
	}
	c.toasts.Show(MsgSettingsSaved)
	return saved, nil
}

// OpenProfileModal shows the modal with the stored profile loaded
func (c *Controller) OpenProfileModal(ctx context.Context) error {
	p, ok, err := c.Profile(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalOpen = true
	if ok {
		c.form = formFromProfile(p)
	}
	return nil
}

// CloseModal hides the modal; the edit buffers keep their contents
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalOpen = false
}

// SaveProfile validates and stores form. A rejected form keeps the modal
// open and shows the validation message.
func (c *Controller) SaveProfile(ctx context.Context, form ProfileForm) (store.Profile, error) {
	c.mu.Lock()
	c.form = form
	c.mu.Unlock()

	saved, err := c.svc.SaveProfile(ctx, form.Profile())
	if err != nil {
		c.toasts.Show(userMessage(err))
		return store.Profile{}, err
	}

	c.CloseModal()
	c.toasts.Show(MsgProfileSaved)
	return saved, nil
}

// TestAutoFill runs a fill against the sample checkout form
func (c *Controller) TestAutoFill(ctx context.Context) (autofill.Result, error) {
	if _, ok, err := c.Profile(ctx); err != nil {
		return autofill.Result{}, err
	} else if !ok {
		c.toasts.Show(MsgFillProfileFirst)
		if err := c.OpenProfileModal(ctx); err != nil {
			return autofill.Result{}, err
		}
		return autofill.Result{}, services.ErrNoProfile
	}

	if !c.beginFill() {
		c.toasts.Show(MsgFillInProgress)
		return autofill.Result{}, ErrFillInProgress
	}
	defer c.endFill()

	doc, err := c.checkout()
	if err != nil {
		return autofill.Result{}, fmt.Errorf("failed to load sample checkout: %w", err)
	}

	c.toasts.Show(MsgTesting)
	result, _, err := c.svc.Fill(ctx, services.FillRequest{
		Document: doc,
		URL:      web.CheckoutPage,
		Source:   services.SourceTest,
	})
	if err != nil {
		c.toasts.Show(testFailedPrefix + ": " + err.Error())
		return result, err
	}
	c.toasts.Show(MsgTestPassed)
	return result, nil
}

// QuickAction asks listening pages to fill themselves. The auto-fill switch
// is checked before the profile.
func (c *Controller) QuickAction(ctx context.Context) error {
	_, err := c.svc.Trigger(ctx)
	switch {
	case errors.Is(err, services.ErrAutoFillDisabled):
		c.toasts.Show(MsgEnableAutoFill)
	case errors.Is(err, services.ErrNoProfile):
		c.toasts.Show(MsgCompleteProfile)
		if oerr := c.OpenProfileModal(ctx); oerr != nil {
			logging.Warn("Failed to open profile modal: %v", oerr)
		}
	case err != nil:
		c.toasts.Show(quickActionFailPrefix + ": " + err.Error())
	default:
		c.toasts.Show(MsgAutoFillReady)
	}
	return err
}

// ManageAddresses is a placeholder for multiple saved addresses
func (c *Controller) ManageAddresses() {
	c.toasts.Show(MsgAddressesComing)
}

// History returns recent fill runs for the history tab
func (c *Controller) History(ctx context.Context, limit int) ([]database.FillRun, error) {
	return c.svc.History(ctx, limit)
}

// Filling reports whether a fill is running
func (c *Controller) Filling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filling
}

func (c *Controller) beginFill() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filling {
		return false
	}
	c.filling = true
	return true
}

func (c *Controller) endFill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filling = false
}

func userMessage(err error) string {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
