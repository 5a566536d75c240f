package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/stablearb/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed", "done"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "exchange", "account"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	balances *components.BalancesComponent
	deals    *components.DealsComponent
	stats    *components.StatsComponent
	status   *components.StatusComponent
	keys     KeyMap
	help     help.Model

	phase        Phase
	welcomeStart time.Time

	ready      bool
	quitting   bool
	paused     bool // freezes the deal list and activity feed
	width      int
	height     int
	lastUpdate time.Time
	lastCycle  time.Time
	errors     []ErrorEntry // last 3
	activity   []string

	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		balances:     components.NewBalancesComponent(),
		deals:        components.NewDealsComponent(50),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent("Binance.US"),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		errors:       make([]ErrorEntry, 0, 3),
		activity:     make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"config":   {Name: "Loading configuration", Status: "pending"},
			"exchange": {Name: "Syncing exchange clock and lot sizes", Status: "pending"},
			"account":  {Name: "Reading account balances", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Update must not block on Send, so the callback runs on its own goroutine.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) startupDone() bool {
	for _, key := range startupOrder {
		if s := m.startupSteps[key].Status; s != "connected" && s != "done" {
			return false
		}
	}
	return true
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.deals.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.deals.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.deals.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Status == "failed" && msg.Message != "" {
			m.addError(msg.Message)
		}
		if m.phase == PhaseStartup && m.startupDone() {
			m.phase = PhaseDashboard
		}

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			Breaker:    msg.Breaker,
			DryRun:     msg.DryRun,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()

	case PortfolioMsg:
		m.balances.Update(msg.Home, msg.Balances)
		m.startupSteps["account"].Status = "done"
		m.lastUpdate = time.Now()

	case DealMsg:
		s := m.stats.Stats()
		s.DealsFound++
		m.stats.Update(s)
		if !m.paused {
			m.deals.Add(msg.Row)
			m.addActivity(fmt.Sprintf("deal %s: buy %s sell %s +%s%%",
				msg.Row.Token, msg.Row.BuyPair, msg.Row.SellPair, msg.Row.SpreadPercent.StringFixed(3)))
		}
		m.lastUpdate = time.Now()

	case TradeMsg:
		status := components.DealFailed
		if msg.Success {
			status = components.DealExecuted
		}
		m.deals.Resolve(msg.Token, status, msg.Detail)
		if !m.paused {
			m.addActivity(fmt.Sprintf("trade %s %s %s", msg.Token, status, msg.Detail))
		}
		m.lastUpdate = time.Now()

	case CycleMsg:
		s := m.stats.Stats()
		s.Cycles = msg.Number
		s.TokensScanned += msg.TokensScanned
		s.TradesExecuted += msg.TradesExecuted
		s.TradesFailed += msg.TradesFailed
		s.LastCycle = msg.Duration
		if msg.Err != nil {
			s.FailedCycles++
			m.addError(msg.Err.Error())
		}
		m.stats.Update(s)
		m.lastCycle = time.Now()
		m.lastUpdate = time.Now()
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}

	case ErrorMsg:
		if msg.Error != nil {
			m.addError(msg.Error.Error())
		}

	case LogMsg:
		if !m.paused {
			m.addActivity(msg.Level + ": " + msg.Message)
		}
	}

	return m, nil
}

// addError keeps the last 3 errors.
func (m *Model) addError(message string) {
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

// addActivity keeps the last 6 activity lines.
func (m *Model) addActivity(message string) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	m.activity = append(m.activity, line)
	if len(m.activity) > 6 {
		m.activity = m.activity[len(m.activity)-6:]
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Stablecoin Arbitrage Bot "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.balances.View() + "\n\n" + m.stats.View()
	rightCol := m.renderActivityFeed() + "\n\n" + m.deals.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 40
		}
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(NegativeValue.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(WarningValue.Bold(true).Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activity) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for the first cycle..."))
		return sb.String()
	}
	for _, line := range m.activity {
		style := MutedValue
		switch {
		case strings.Contains(line, components.DealExecuted):
			style = PositiveValue
		case strings.Contains(line, components.DealFailed):
			style = NegativeValue
		}
		sb.WriteString(style.Render("  " + line))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)

	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ███████╗████████╗ █████╗ ██████╗ ██╗     ███████╗
   ██╔════╝╚══██╔══╝██╔══██╗██╔══██╗██║     ██╔════╝
   ███████╗   ██║   ███████║██████╔╝██║     █████╗
   ╚════██║   ██║   ██╔══██║██╔══██╗██║     ██╔══╝
   ███████║   ██║   ██║  ██║██████╔╝███████╗███████╗
   ╚══════╝   ╚═╝   ╚═╝  ╚═╝╚═════╝ ╚══════╝╚══════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("          S T A B L E C O I N   A R B I T R A G E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("              USD  ·  USDT  ·  USDC  ·  BUSD"))
	sb.WriteString("\n\n\n")
	sb.WriteString(PositiveValue.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStartupScreen() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(HeaderStyle.Render("  Stablecoin Arbitrage Bot"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, key := range startupOrder {
		step := m.startupSteps[key]

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", PositiveValue
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", WarningValue
		case "failed":
			icon, statusText, style = "✗", "Failed", NegativeValue
		default:
			icon, statusText, style = "○", "Pending", MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")

	for _, err := range m.errors {
		sb.WriteString("\n")
		sb.WriteString(NegativeValue.Render("  " + err.Message))
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.status.View()}

	if home := m.balances.Home(); home != "" {
		parts = append(parts, "Home: "+PositiveValue.Render(home))
	}

	if s := m.stats.Stats(); s.Cycles > 0 {
		parts = append(parts, PositiveValue.Render(fmt.Sprintf("Cycle: #%d", s.Cycles)))
	}

	if !m.lastCycle.IsZero() {
		ago := time.Since(m.lastCycle).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Last cycle: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
var OnStartModules func()

// Send sends a message to the running program. It is a no-op before Program is set.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
