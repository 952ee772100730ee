package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nateberkopec/busysim/internal/catalog"
	"github.com/nateberkopec/busysim/internal/config"
	"github.com/nateberkopec/busysim/internal/registry"
	"github.com/nateberkopec/busysim/internal/scheduler"
)

// controller captures the scheduler functionality the model needs. This
// makes it easy to stub in tests without touching timers or audio.
type controller interface {
	Sync() int
	Toggle(id string) (active bool, ok bool)
	SetSpeed(id string, speed int) bool
	StopAll()
	Events() <-chan scheduler.Event
	Close()
}

// CatalogLoader fetches the app list once at startup.
type CatalogLoader func(ctx context.Context) ([]catalog.App, error)

type statusKind int

const (
	statusNeutral statusKind = iota
	statusError
	statusSuccess
)

type statusMessage struct {
	text    string
	kind    statusKind
	expires time.Time
}

const bounceDuration = 500 * time.Millisecond

// Config wires external dependencies for the app.
type Config struct {
	Registry   *registry.Registry
	Controller controller
	Load       CatalogLoader
	Speed      config.SpeedSettings
	Logger     zerolog.Logger
}

// Model implements the Bubble Tea program.
type Model struct {
	reg   *registry.Registry
	ctrl  controller
	load  CatalogLoader
	speed config.SpeedSettings
	log   zerolog.Logger

	keys keyMap
	help help.Model

	selectedIndex int
	rowOffset     int
	width         int
	height        int

	showAbout bool
	loaded    bool
	status    statusMessage
	bouncing  map[string]time.Time
}

// New creates a Bubble Tea model for the simulator.
func New(cfg Config) *Model {
	speed := cfg.Speed
	if speed.Max <= speed.Min {
		speed = config.Default().Speed
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.NewWithDefaultSpeed(speed.Default)
	}

	return &Model{
		reg:      reg,
		ctrl:     cfg.Controller,
		load:     cfg.Load,
		speed:    speed,
		log:      cfg.Logger,
		keys:     defaultKeyMap(),
		help:     help.New(),
		bouncing: make(map[string]time.Time),
	}
}

// Init satisfies the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		loadCatalogCmd(m.load),
		waitForEvent(m.ctrl.Events()),
		waitForChange(m.reg.Changes()),
	)
}

// Update drives the Bubble Tea state machine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.maybeExpireStatus()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ensureSelectionBounds()
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case catalogLoadedMsg:
		m.absorbCatalog(msg.Apps, msg.Err)
	case pingMsg:
		m.bouncing[msg.ID] = msg.At.Add(bounceDuration)
		id := msg.ID
		return m, tea.Batch(
			waitForEvent(m.ctrl.Events()),
			tea.Tick(bounceDuration, func(time.Time) tea.Msg { return bounceEndMsg{ID: id} }),
		)
	case bounceEndMsg:
		if until, ok := m.bouncing[msg.ID]; ok && !time.Now().Before(until) {
			delete(m.bouncing, msg.ID)
		}
	case changedMsg:
		return m, waitForChange(m.reg.Changes())
	}

	return m, nil
}

// View renders the TUI.
func (m *Model) View() string {
	return renderView(m)
}

func (m *Model) absorbCatalog(apps []catalog.App, err error) {
	if m.loaded {
		return
	}
	m.loaded = true
	if err != nil {
		// No retry and nothing shown; the grid just stays empty.
		m.log.Error().Err(err).Msg("failed to load app catalog")
		return
	}
	m.reg.Load(apps)
	created := m.ctrl.Sync()
	m.log.Info().Int("apps", len(apps)).Int("schedulers", created).Msg("catalog loaded")
	m.ensureSelectionBounds()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.ctrl.Close()
		return m, tea.Quit
	}

	if m.showAbout {
		if key.Matches(msg, m.keys.Close, m.keys.About, m.keys.Toggle) {
			m.showAbout = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-m.columns())
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(m.columns())
	case key.Matches(msg, m.keys.Left):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Toggle):
		m.activate(m.selectedIndex)
	case key.Matches(msg, m.keys.Faster):
		m.nudgeSpeed(-m.speed.Step)
	case key.Matches(msg, m.keys.Slower):
		m.nudgeSpeed(m.speed.Step)
	case key.Matches(msg, m.keys.StopAll):
		m.stopAll()
	case key.Matches(msg, m.keys.About):
		m.showAbout = true
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		if m.showAbout {
			m.showAbout = false
			return m, nil
		}
		if index, ok := m.tileAt(msg.X, msg.Y); ok {
			m.selectedIndex = index
			m.activate(index)
		}
	case tea.MouseButtonWheelUp:
		m.moveSelection(-m.columns())
	case tea.MouseButtonWheelDown:
		m.moveSelection(m.columns())
	}
	return m, nil
}

// activate runs the action behind a tile: app toggle, stop all or about.
func (m *Model) activate(index int) {
	entries := m.reg.Entries()
	switch {
	case index < len(entries):
		e := entries[index]
		active, ok := m.ctrl.Toggle(e.ID)
		if !ok {
			return
		}
		if active {
			m.setStatus(fmt.Sprintf("%s is buzzing", e.Name), statusSuccess)
		} else {
			m.setStatus(fmt.Sprintf("%s went quiet", e.Name), statusNeutral)
		}
	case index == len(entries):
		m.stopAll()
	case index == len(entries)+1:
		m.showAbout = true
	}
}

func (m *Model) stopAll() {
	m.ctrl.StopAll()
	m.setStatus("All apps stopped", statusNeutral)
}

func (m *Model) nudgeSpeed(delta int) {
	e, ok := m.selectedEntry()
	if !ok {
		return
	}
	next := m.speed.ClampSpeed(e.Speed + delta)
	if next == e.Speed {
		return
	}
	m.ctrl.SetSpeed(e.ID, next)
}

func (m *Model) selectedEntry() (registry.Entry, bool) {
	entries := m.reg.Entries()
	if m.selectedIndex < 0 || m.selectedIndex >= len(entries) {
		return registry.Entry{}, false
	}
	return entries[m.selectedIndex], true
}

// tileCount is every app plus the Stop all and About tiles.
func (m *Model) tileCount() int {
	return m.reg.Len() + 2
}

func (m *Model) moveSelection(delta int) {
	m.selectedIndex += delta
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	if last := m.tileCount() - 1; m.selectedIndex > last {
		m.selectedIndex = last
	}
	m.ensureSelectionBounds()
}

func (m *Model) ensureSelectionBounds() {
	if m.selectedIndex >= m.tileCount() {
		m.selectedIndex = m.tileCount() - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	rows := m.visibleRows()
	row := m.selectedIndex / m.columns()
	if row < m.rowOffset {
		m.rowOffset = row
	}
	if row >= m.rowOffset+rows {
		m.rowOffset = row - rows + 1
	}
	totalRows := (m.tileCount() + m.columns() - 1) / m.columns()
	maxOffset := max(0, totalRows-rows)
	if m.rowOffset > maxOffset {
		m.rowOffset = maxOffset
	}
	if m.rowOffset < 0 {
		m.rowOffset = 0
	}
}

func (m *Model) columns() int {
	if m.width <= 0 {
		return 1
	}
	return max(1, m.width/cardOuterWidth)
}

func (m *Model) visibleRows() int {
	rows := (m.height - headerHeight - footerHeight) / cardOuterHeight
	return max(1, rows)
}

// tileAt maps a screen position to a tile index.
func (m *Model) tileAt(x, y int) (int, bool) {
	if y < headerHeight || x < 0 {
		return 0, false
	}
	col := x / cardOuterWidth
	row := (y-headerHeight)/cardOuterHeight + m.rowOffset
	if col >= m.columns() || row >= m.rowOffset+m.visibleRows() {
		return 0, false
	}
	index := row*m.columns() + col
	if index >= m.tileCount() {
		return 0, false
	}
	return index, true
}

func (m *Model) isBouncing(id string) bool {
	until, ok := m.bouncing[id]
	return ok && time.Now().Before(until)
}

func (m *Model) setStatus(text string, kind statusKind) {
	if text == "" {
		m.status = statusMessage{}
		return
	}
	m.status = statusMessage{
		text:    text,
		kind:    kind,
		expires: time.Now().Add(5 * time.Second),
	}
}

func (m *Model) maybeExpireStatus() {
	if m.status.text == "" {
		return
	}
	if time.Now().After(m.status.expires) {
		m.status = statusMessage{}
	}
}

type catalogLoadedMsg struct {
	Apps []catalog.App
	Err  error
}

type pingMsg scheduler.Event

type bounceEndMsg struct {
	ID string
}

type changedMsg struct{}

func loadCatalogCmd(load CatalogLoader) tea.Cmd {
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		apps, err := load(ctx)
		return catalogLoadedMsg{Apps: apps, Err: err}
	}
}

func waitForEvent(events <-chan scheduler.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return pingMsg(ev)
	}
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return changedMsg{}
	}
}
