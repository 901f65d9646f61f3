package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lance13c/shopassist/internal/database"
	"github.com/lance13c/shopassist/internal/store"
)

const (
	historyLimit = 10
	delayStep    = 50
	actionWait   = 30 * time.Second
)

// Modal fields in focus order
const (
	fieldName = iota
	fieldPhone
	fieldAddress
	fieldPostal
	fieldCount
)

// Message types
type (
	stateMsg struct {
		settings   store.Settings
		profile    store.Profile
		hasProfile bool
		history    []database.FillRun
		err        error
	}
	actionDoneMsg struct {
		openModal bool
		err       error
	}
	toastTickMsg struct{}
)

// Model is the main application model
type Model struct {
	ctrl   *Controller
	keys   keyMap
	styles *Styles
	width  int
	height int

	settings   store.Settings
	profile    store.Profile
	hasProfile bool
	history    []database.FillRun
	loadErr    error

	inputs       []textinput.Model
	focusedInput int

	showTutorial  bool
	tutorial      string
	tutorialStyle string
}

// NewModel creates the main model over ctrl
func NewModel(ctrl *Controller) *Model {
	inputs := make([]textinput.Model, fieldCount)
	placeholders := []string{"Nama penerima", "08xxxxxxxxxx", "Alamat lengkap", "Kode pos"}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 200
		ti.Width = 44
		inputs[i] = ti
	}
	inputs[fieldPhone].CharLimit = 20
	inputs[fieldPostal].CharLimit = 10

	tutorialStyle := TutorialLight
	if lipgloss.HasDarkBackground() {
		tutorialStyle = TutorialDark
	}

	return &Model{
		ctrl:          ctrl,
		keys:          newKeyMap(),
		styles:        NewStyles(),
		inputs:        inputs,
		tutorialStyle: tutorialStyle,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.loadState()
}

func (m *Model) loadState() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionWait)
		defer cancel()

		var msg stateMsg
		msg.settings, msg.err = ctrl.Settings(ctx)
		if msg.err != nil {
			return msg
		}
		msg.profile, msg.hasProfile, msg.err = ctrl.Profile(ctx)
		if msg.err != nil {
			return msg
		}
		msg.history, msg.err = ctrl.History(ctx, historyLimit)
		return msg
	}
}

// run executes a controller action off the update loop
func (m *Model) run(action func(ctx context.Context) error) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionWait)
		defer cancel()
		err := action(ctx)
		return actionDoneMsg{openModal: ctrl.ModalOpen(), err: err}
	}
}

func (m *Model) toastTick() tea.Cmd {
	return tea.Tick(m.ctrl.Toasts().TTL(), func(time.Time) tea.Msg {
		return toastTickMsg{}
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tutorial = ""
		return m, nil

	case stateMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.settings = msg.settings
			m.profile = msg.profile
			m.hasProfile = msg.hasProfile
			m.history = msg.history
		}
		return m, nil

	case actionDoneMsg:
		var cmds []tea.Cmd
		switch {
		case msg.openModal && !m.inputsFocused():
			cmds = append(cmds, m.fillInputs())
		case !msg.openModal:
			m.blurInputs()
		}
		cmds = append(cmds, m.loadState(), m.toastTick())
		return m, tea.Batch(cmds...)

	case toastTickMsg:
		return m, nil

	case tea.KeyMsg:
		if m.ctrl.ModalOpen() {
			return m.updateModal(msg)
		}
		if m.showTutorial {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			m.showTutorial = false
			return m, nil
		}
		return m.updateMain(msg)
	}

	return m, nil
}

func (m *Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextTab):
		m.ctrl.Navigate(Tabs[(int(m.ctrl.Tab())+1)%len(Tabs)])
		return m, m.loadState()

	case key.Matches(msg, m.keys.PrevTab):
		m.ctrl.Navigate(Tabs[(int(m.ctrl.Tab())+len(Tabs)-1)%len(Tabs)])
		return m, m.loadState()

	case key.Matches(msg, m.keys.AutoFill):
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.Toggle(ctx, ToggleAutoFill)
			return err
		})

	case key.Matches(msg, m.keys.SmartNav):
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.Toggle(ctx, ToggleSmartNav)
			return err
		})

	case key.Matches(msg, m.keys.Edit):
		return m, m.run(m.ctrl.OpenProfileModal)

	case key.Matches(msg, m.keys.Test):
		if m.ctrl.Filling() {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.TestAutoFill(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Quick):
		return m, m.run(m.ctrl.QuickAction)

	case key.Matches(msg, m.keys.Tutorial):
		m.showTutorial = true
		return m, nil

	case key.Matches(msg, m.keys.Addresses):
		m.ctrl.ManageAddresses()
		return m, m.toastTick()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadState()
	}

	if m.ctrl.Tab() == TabSettings {
		return m.updateSettings(msg)
	}
	return m, nil
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	delay := m.settings.FillDelayMs
	payment := m.settings.PaymentMethod

	switch {
	case key.Matches(msg, m.keys.DelayUp):
		delay += delayStep
	case key.Matches(msg, m.keys.DelayDown):
		delay = max(0, delay-delayStep)
	case key.Matches(msg, m.keys.Payment):
		payment = nextPaymentMethod(payment)
	default:
		return m, nil
	}

	return m, m.run(func(ctx context.Context) error {
		_, err := m.ctrl.SaveSettings(ctx, delay, payment)
		return err
	})
}

func nextPaymentMethod(current string) string {
	for i, method := range store.PaymentMethods {
		if method == current {
			return store.PaymentMethods[(i+1)%len(store.PaymentMethods)]
		}
	}
	return store.PaymentMethods[0]
}

func (m *Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.Close):
		m.ctrl.CloseModal()
		m.blurInputs()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		form := m.formValues()
		return m, m.run(func(ctx context.Context) error {
			_, err := m.ctrl.SaveProfile(ctx, form)
			return err
		})

	case key.Matches(msg, m.keys.NextField):
		return m, m.focusInput((m.focusedInput + 1) % fieldCount)

	case key.Matches(msg, m.keys.PrevField):
		return m, m.focusInput((m.focusedInput + fieldCount - 1) % fieldCount)
	}

	var cmd tea.Cmd
	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *Model) fillInputs() tea.Cmd {
	form := m.ctrl.Form()
	m.inputs[fieldName].SetValue(form.Name)
	m.inputs[fieldPhone].SetValue(form.Phone)
	m.inputs[fieldAddress].SetValue(form.Address)
	m.inputs[fieldPostal].SetValue(form.PostalCode)
	return m.focusInput(fieldName)
}

func (m *Model) focusInput(i int) tea.Cmd {
	m.blurInputs()
	m.focusedInput = i
	return m.inputs[i].Focus()
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *Model) inputsFocused() bool {
	for _, in := range m.inputs {
		if in.Focused() {
			return true
		}
	}
	return false
}

func (m *Model) formValues() ProfileForm {
	return ProfileForm{
		Name:       strings.TrimSpace(m.inputs[fieldName].Value()),
		Phone:      strings.TrimSpace(m.inputs[fieldPhone].Value()),
		Address:    strings.TrimSpace(m.inputs[fieldAddress].Value()),
		PostalCode: strings.TrimSpace(m.inputs[fieldPostal].Value()),
	}
}

// View implements tea.Model
func (m *Model) View() string {
	var body string
	switch {
	case m.showTutorial:
		if m.tutorial == "" {
			m.tutorial = RenderTutorial(min(m.width, 100)-4, m.tutorialStyle)
		}
		body = m.tutorial + "\n" + m.styles.Muted.Render("tekan tombol apa saja untuk kembali")
	case m.ctrl.ModalOpen():
		body = m.renderModal()
	default:
		body = m.renderTab()
	}

	sections := []string{
		m.styles.Header.Render("🛍️  Shop Assistant"),
		m.renderNav(),
		"",
		body,
	}
	if m.loadErr != nil {
		sections = append(sections, m.styles.ErrorBox.Render(m.loadErr.Error()))
	}
	if toast, ok := m.ctrl.Toasts().Current(); ok {
		sections = append(sections, m.styles.Toast.Render(toast.Message))
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderNav() string {
	active := m.ctrl.Tab()
	items := make([]string, 0, len(Tabs))
	for _, tab := range Tabs {
		style := m.styles.NavItem
		if tab == active {
			style = m.styles.NavActive
		}
		items = append(items, style.Render(tab.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, items...)
}

func (m *Model) renderTab() string {
	switch m.ctrl.Tab() {
	case TabHistory:
		return m.renderHistory()
	case TabSettings:
		return m.renderSettings()
	default:
		return m.renderHome()
	}
}

func (m *Model) renderSwitch(on bool) string {
	if on {
		return m.styles.SwitchOn.Render("● ON")
	}
	return m.styles.SwitchOff.Render("○ OFF")
}

func (m *Model) row(label, value string) string {
	return m.styles.Label.Render(label) + value
}

func (m *Model) renderHome() string {
	var profile string
	if m.hasProfile {
		lines := []string{
			m.row("Nama", m.profile.Name),
			m.row("No. HP", m.profile.Phone),
			m.row("Alamat", orDash(m.profile.Address)),
			m.row("Kode pos", orDash(m.profile.PostalCode)),
		}
		profile = strings.Join(lines, "\n")
	} else {
		profile = m.styles.Muted.Render("Belum ada profile. Tekan e untuk mengisi.")
	}

	switches := strings.Join([]string{
		m.row(ToggleAutoFill.Label(), m.renderSwitch(m.settings.AutoFillEnabled)),
		m.row(ToggleSmartNav.Label(), m.renderSwitch(m.settings.SmartNavEnabled)),
	}, "\n")

	status := ""
	if m.ctrl.Filling() {
		status = "\n" + m.styles.Welcome.Render("Mengisi form...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Welcome.Render("Data Pengiriman"),
		m.styles.Card.Render(profile),
		m.styles.Welcome.Render("Mode"),
		m.styles.Card.Render(switches)+status,
	)
}

func (m *Model) renderSettings() string {
	lines := []string{
		m.row(ToggleAutoFill.Label(), m.renderSwitch(m.settings.AutoFillEnabled)),
		m.row(ToggleSmartNav.Label(), m.renderSwitch(m.settings.SmartNavEnabled)),
		m.row("Kecepatan fill", fmt.Sprintf("%d ms", m.settings.FillDelayMs)),
		m.row("Pembayaran", m.settings.PaymentMethod),
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Welcome.Render("Pengaturan"),
		m.styles.Card.Render(strings.Join(lines, "\n")),
		m.styles.Muted.Render("+/- ubah kecepatan • p ganti metode pembayaran"),
	)
}

func (m *Model) renderHistory() string {
	if len(m.history) == 0 {
		return m.styles.Muted.Render("Belum ada riwayat auto-fill.")
	}

	lines := make([]string, 0, len(m.history))
	for _, run := range m.history {
		status := m.styles.SwitchOn.Render("✓")
		if run.Error != "" {
			status = m.styles.ErrorText.Render("✗")
		}
		target := run.URL
		if target == "" {
			target = run.Source
		}
		lines = append(lines, fmt.Sprintf("%s %s  %-28s %d/%d field  %dms",
			status,
			run.CreatedAt.Local().Format("02 Jan 15:04"),
			truncate(target, 28),
			len(run.Filled), len(run.Detected),
			run.DurationMs,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Welcome.Render("Riwayat"),
		m.styles.Card.Render(strings.Join(lines, "\n")),
	)
}

func (m *Model) renderModal() string {
	labels := []string{"Nama Penerima", "Nomor HP", "Alamat", "Kode Pos"}
	var b strings.Builder
	b.WriteString(m.styles.Welcome.Render("Edit Data"))
	b.WriteString("\n\n")
	for i, in := range m.inputs {
		b.WriteString(m.styles.Label.Render(labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("enter simpan • esc tutup • tab pindah field"))
	return m.styles.Modal.Render(b.String())
}

func (m *Model) renderFooter() string {
	return m.styles.Footer.Render(
		"[tab Pindah] [a Auto-Fill] [n Smart Nav] [e Edit] [t Test] [f Isi] [m Alamat] [? Bantuan] [q Keluar]",
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
