package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	armedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e5c07b"))
	playingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98c379"))
	overdubStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")).Bold(true)
	cursorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#444"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")).Bold(true)
)

type trackView struct {
	state        string
	loopDuration float64
	divider      int
	pitchSemis   float64
	uiLocked     bool
}

type model struct {
	client *apiClient
	events chan sseEvent

	cursor           int
	tracks           [4]trackView
	bpm              int
	loopbackDetected bool
	monitorMuted     bool
	lastErr          string
	quitting         bool
}

func newModel(client *apiClient) model {
	return model{
		client: client,
		events: make(chan sseEvent, 64),
	}
}

type eventMsg sseEvent
type statusMsg statusResponse
type errMsg string

func (m model) Init() tea.Cmd {
	return tea.Batch(connectSSE(m.client, m.events), waitForEvent(m.events), fetchStatus(m.client))
}

func connectSSE(client *apiClient, ch chan sseEvent) tea.Cmd {
	return func() tea.Msg {
		go func() {
			for {
				if err := client.streamEvents(ch); err != nil {
					time.Sleep(2 * time.Second)
				}
			}
		}()
		return nil
	}
}

func waitForEvent(ch chan sseEvent) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func fetchStatus(client *apiClient) tea.Cmd {
	return func() tea.Msg {
		st, err := client.status()
		if err != nil {
			return errMsg(err.Error())
		}
		return statusMsg(st)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		for _, t := range msg.Tracks {
			if t.Index < 1 || t.Index > 4 {
				continue
			}
			m.tracks[t.Index-1] = trackView{
				state:        t.State,
				loopDuration: t.LoopDuration,
				divider:      t.Divider,
				pitchSemis:   t.PitchSemis,
				uiLocked:     t.UILocked,
			}
		}
		m.loopbackDetected = msg.LoopbackDetected

	case eventMsg:
		m.applyEvent(sseEvent(msg))
		return m, waitForEvent(m.events)

	case errMsg:
		m.lastErr = string(msg)
	}

	return m, nil
}

func (m *model) applyEvent(e sseEvent) {
	switch e.Type {
	case "track_state":
		var d struct {
			Track int    `json:"track"`
			State string `json:"state"`
		}
		if json.Unmarshal(e.Data, &d) == nil && d.Track >= 1 && d.Track <= 4 {
			m.tracks[d.Track-1].state = d.State
		}
	case "transport":
		var d struct {
			BPM int `json:"bpm"`
		}
		if json.Unmarshal(e.Data, &d) == nil {
			m.bpm = d.BPM
		}
	case "error":
		var d struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(e.Data, &d) == nil {
			m.lastErr = d.Message
		}
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}
	case "l", "right":
		if m.cursor < 3 {
			m.cursor++
		}

	case " ", "enter":
		track := m.cursor + 1
		cmd := "press"
		if m.tracks[m.cursor].state == "playing" || m.tracks[m.cursor].state == "overdub" {
			cmd = "stop"
		}
		m.sendCommand(map[string]any{"track": track, "cmd": cmd})

	case "c":
		m.sendCommand(map[string]any{"track": m.cursor + 1, "cmd": "clear"})

	case "u":
		m.sendCommand(map[string]any{"track": m.cursor + 1, "cmd": "undo"})

	case "m":
		m.sendCommand(map[string]any{"cmd": "toggleMonitor"})
		m.monitorMuted = !m.monitorMuted

	case "y":
		m.sendCommand(map[string]any{"cmd": "confirmOverdub", "confirmed": true})
	}

	return m, nil
}

func (m model) sendCommand(body map[string]any) {
	go func() {
		_ = m.client.command(body)
	}()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var cells []string
	for i, t := range m.tracks {
		style := readyStyle
		switch t.state {
		case "recording":
			style = armedStyle
		case "playing":
			style = playingStyle
		case "overdub":
			style = overdubStyle
		}
		label := fmt.Sprintf(" %d:%-10s ", i+1, t.state)
		if t.state == "" {
			label = fmt.Sprintf(" %d:%-10s ", i+1, "empty")
		}
		if i == m.cursor {
			style = style.Inherit(cursorStyle)
		}
		cells = append(cells, style.Render(label))
	}
	grid := strings.Join(cells, "")

	loopback := "clear"
	if m.loopbackDetected {
		loopback = "DETECTED"
	}
	status := statusStyle.Render(fmt.Sprintf("%3dbpm  loopback:%s  monitor:%s", m.bpm, loopback, monitorLabel(m.monitorMuted)))

	help := dimStyle.Render("h/l:select  space:press/stop  c:clear  u:undo  m:monitor  y:confirm-overdub  q:quit")

	out := fmt.Sprintf("\n%s\n%s\n\n%s\n", grid, status, help)
	if m.lastErr != "" {
		out += warnStyle.Render(m.lastErr) + "\n"
	}
	return out
}

func monitorLabel(muted bool) string {
	if muted {
		return "muted"
	}
	return "open"
}
