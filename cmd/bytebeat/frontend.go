package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"

	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

const (
	scopeRows   = 8
	refreshRate = 50 * time.Millisecond
)

type keyMap struct {
	Quit   key.Binding
	Play   key.Binding
	Reset  key.Binding
	Engine key.Binding
	Rate   key.Binding
	Zoom   key.Binding
	Prev   key.Binding
	Next   key.Binding
	Export key.Binding
	Louder key.Binding
	Softer key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	Play:   key.NewBinding(key.WithKeys("f2", "ctrl+p"), key.WithHelp("f2", "play/pause")),
	Reset:  key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "reset t")),
	Engine: key.NewBinding(key.WithKeys("f4"), key.WithHelp("f4", "engine")),
	Rate:   key.NewBinding(key.WithKeys("f5"), key.WithHelp("f5", "rate")),
	Zoom:   key.NewBinding(key.WithKeys("f6"), key.WithHelp("f6", "zoom")),
	Prev:   key.NewBinding(key.WithKeys("f7"), key.WithHelp("f7", "prev")),
	Next:   key.NewBinding(key.WithKeys("f8"), key.WithHelp("f8", "next")),
	Export: key.NewBinding(key.WithKeys("f9"), key.WithHelp("f9", "export wav")),
	Louder: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "vol+")),
	Softer: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "vol-")),
}

func (k keyMap) help() string {
	all := []key.Binding{k.Play, k.Reset, k.Engine, k.Rate, k.Zoom, k.Prev, k.Next, k.Export, k.Louder, k.Softer, k.Quit}
	parts := make([]string, 0, len(all))
	for _, b := range all {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	scopeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type model struct {
	s       *session
	editor  textarea.Model
	hidden  parser.Hidden
	lastSrc string
	width   int
	height  int
	ready   bool
	zoom    int
	preset  int
	note    string
}

func newModel(s *session) model {
	ta := textarea.New()
	ta.Placeholder = "t*(42&t>>10)"
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	m := model{s: s, editor: ta, preset: -1}
	m.setSource(s.cfg.source)
	m.editor.Focus()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *model) setSource(src string) {
	shown, hidden := parser.HideLongStrings(src)
	m.hidden = hidden
	m.editor.SetValue(shown)
	m.lastSrc = m.editor.Value()
}

func (m *model) source() string {
	return m.hidden.Expand(m.editor.Value())
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		eh := msg.Height - scopeRows - 7
		if eh < 3 {
			eh = 3
		}
		m.editor.SetWidth(msg.Width)
		m.editor.SetHeight(eh)
		m.ready = true
		return m, nil

	case tickMsg:
		return m, tick()

	case exportDoneMsg:
		if msg.err != nil {
			m.note = errStyle.Render(msg.err.Error())
		} else {
			m.note = okStyle.Render(fmt.Sprintf("wrote %s (%s)", msg.path, units.HumanSize(float64(msg.bytes))))
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Play):
			m.s.player.Toggle()
			return m, nil
		case key.Matches(msg, keys.Reset):
			m.s.player.Seek(0)
			m.s.vm.Reset()
			return m, nil
		case key.Matches(msg, keys.Engine):
			next := rpn.Complex
			if m.s.vm.Mode() == rpn.Complex {
				next = rpn.Classic
			}
			_ = m.s.vm.SetMode(next)
			return m, nil
		case key.Matches(msg, keys.Rate):
			m.s.player.SetRate(nextRate(m.s.player.Rate()))
			return m, nil
		case key.Matches(msg, keys.Zoom):
			m.zoom = (m.zoom + 1) % len(bbruntime.ZoomFactors)
			return m, nil
		case key.Matches(msg, keys.Next):
			return m.stepPreset(1), nil
		case key.Matches(msg, keys.Prev):
			return m.stepPreset(-1), nil
		case key.Matches(msg, keys.Export):
			m.note = "exporting..."
			return m, m.exportCmd()
		case key.Matches(msg, keys.Louder):
			m.s.player.SetVolume(m.s.player.Volume() + 0.05)
			return m, nil
		case key.Matches(msg, keys.Softer):
			m.s.player.SetVolume(m.s.player.Volume() - 0.05)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if v := m.editor.Value(); v != m.lastSrc {
		m.lastSrc = v
		_ = m.s.vm.Compile(m.source())
	}
	return m, cmd
}

func (m model) stepPreset(dir int) model {
	ps := m.s.cfg.presets
	if len(ps) == 0 {
		return m
	}
	m.preset = (m.preset + dir + len(ps)) % len(ps)
	p := ps[m.preset]
	m.setSource(p.Code)
	if err := m.s.applyPreset(p); err != nil {
		m.note = errStyle.Render(err.Error())
		return m
	}
	m.note = fmt.Sprintf("preset %d/%d: %s", m.preset+1, len(ps), p.Title)
	return m
}

func (m model) exportCmd() tea.Cmd {
	prog := m.s.vm.Program()
	opts := bbruntime.ExportOptions{Rate: m.s.player.Rate(), Seconds: m.s.cfg.exportSeconds}
	return func() tea.Msg {
		path := fmt.Sprintf("bytebeat-%s.wav", time.Now().Format("20060102-150405"))
		n, err := bbruntime.ExportWAV(path, prog, opts)
		return exportDoneMsg{path: path, bytes: n, err: err}
	}
}

func nextRate(cur int) int {
	for i, r := range bbruntime.Rates {
		if r == cur {
			return bbruntime.Rates[(i+1)%len(bbruntime.Rates)]
		}
	}
	return bbruntime.Rates[0]
}

func (m model) View() string {
	if !m.ready {
		return "initializing..."
	}
	parts := []string{
		titleStyle.Render("bytebeat") + " " + m.statusLine(),
		m.editor.View(),
		m.errorLine(),
	}
	zoom := bbruntime.ZoomFactors[m.zoom]
	scope := m.s.vm.Scope(m.s.player.T(), zoom)
	w := m.width - 2
	if w < 8 {
		w = 8
	}
	parts = append(parts, scopeStyle.Render(renderScope(scope, w, scopeRows)))
	if m.note != "" {
		parts = append(parts, m.note)
	}
	parts = append(parts, helpStyle.Render(keys.help()))
	return strings.Join(parts, "\n")
}

func (m model) statusLine() string {
	state := "paused"
	if m.s.player.Playing() {
		state = "playing"
	}
	rate := m.s.player.Rate()
	t := m.s.player.T()
	elapsed := time.Duration(float64(t) / float64(rate) * float64(time.Second))
	return statusStyle.Render(fmt.Sprintf("%s  %s  %d Hz  vol %d%%  x%d  t=%d  %s  [%s]",
		state,
		m.s.vm.Mode(),
		rate,
		int(m.s.player.Volume()*100+0.5),
		bbruntime.ZoomFactors[m.zoom],
		t,
		units.HumanDuration(elapsed),
		m.s.player.Backend(),
	))
}

// errorLine points at the failing line and column of the last compile.
func (m model) errorLine() string {
	st := m.s.vm.Status()
	if st.Valid || st.Err == nil {
		return okStyle.Render("ok")
	}
	var pe *parser.Error
	if errors.As(st.Err, &pe) && pe.Pos >= 0 {
		line, col := pe.LineCol(st.Source)
		return errStyle.Render(fmt.Sprintf("line %d col %d: %s", line, col, st.Message()))
	}
	return errStyle.Render(st.Message())
}
