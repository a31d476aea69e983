package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/futbind/futbind/manifest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	uniqueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type itemKind int

const (
	kindEntry itemKind = iota
	kindType
)

// explorerItem is one browsable row: an entry point or a declared type.
type explorerItem struct {
	kind   itemKind
	name   string
	line   string
	detail string
}

type explorerState int

const (
	stateBrowse explorerState = iota
	stateDetail
)

// manifestLoader produces the manifest to explore and the file it came from.
type manifestLoader func() (*manifest.Manifest, string, error)

type explorerModel struct {
	err      error
	load     manifestLoader
	source   string
	backend  string
	version  string
	items    []explorerItem
	filtered []int
	filter   textinput.Model
	selected int
	state    explorerState
}

type manifestMsg struct {
	err    error
	m      *manifest.Manifest
	source string
}

func newExplorerModel(load manifestLoader) *explorerModel {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/ "
	filter.Width = 30

	return &explorerModel{
		load:   load,
		filter: filter,
		state:  stateBrowse,
	}
}

func (m *explorerModel) Init() tea.Cmd {
	return func() tea.Msg {
		mf, source, err := m.load()
		return manifestMsg{err: err, m: mf, source: source}
	}
}

func (m *explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if !m.filter.Focused() {
				return m, tea.Quit
			}

		case "/":
			if m.state == stateBrowse && !m.filter.Focused() {
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "up", "k":
			if m.state == stateBrowse && !m.filter.Focused() && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && !m.filter.Focused() && m.selected < len(m.filtered)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateBrowse:
				if m.filter.Focused() {
					m.filter.Blur()
				} else if len(m.filtered) > 0 {
					m.state = stateDetail
				}
			case stateDetail:
				m.state = stateBrowse
			}

		case "esc":
			switch m.state {
			case stateBrowse:
				if m.filter.Focused() {
					m.filter.Blur()
				} else if m.filter.Value() != "" {
					m.filter.SetValue("")
					m.refilter()
				}
			case stateDetail:
				m.state = stateBrowse
			}
		}

	case manifestMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.source = msg.source
		m.backend = msg.m.Backend.String()
		m.version = msg.m.Version
		m.items = buildItems(msg.m)
		m.refilter()
	}

	if m.state == stateBrowse && m.filter.Focused() {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refilter()
		return m, cmd
	}

	return m, nil
}

// refilter recomputes the visible rows from the filter value.
func (m *explorerModel) refilter() {
	needle := strings.ToLower(m.filter.Value())
	m.filtered = m.filtered[:0]
	for i, it := range m.items {
		if needle == "" || strings.Contains(strings.ToLower(it.name), needle) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.selected >= len(m.filtered) {
		m.selected = len(m.filtered) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *explorerModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.items == nil {
		return "Loading manifest..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Futhark Manifest"))
	b.WriteString(fmt.Sprintf(" %s (%s, futhark %s)\n\n", m.source, m.backend, m.version))

	if m.state == stateDetail && m.selected < len(m.filtered) {
		it := m.items[m.filtered[m.selected]]
		b.WriteString(it.line)
		b.WriteString("\n\n")
		b.WriteString(it.detail)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
		return b.String()
	}

	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	for pos, idx := range m.filtered {
		cursor := "  "
		if pos == m.selected {
			cursor = "> "
			b.WriteString(selectedStyle.Render(cursor + m.items[idx].line))
		} else {
			b.WriteString(cursor + m.items[idx].line)
		}
		b.WriteString("\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString(helpStyle.Render("  no matches"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • enter detail • / filter • q quit"))
	return b.String()
}

// buildItems flattens the manifest into browsable rows, entry points first,
// both groups in sorted order.
func buildItems(m *manifest.Manifest) []explorerItem {
	var items []explorerItem

	for _, name := range m.EntryPointNames() {
		ep := m.EntryPoints[name]
		items = append(items, explorerItem{
			kind:   kindEntry,
			name:   name,
			line:   entryStyle.Render(name) + styledSignature(ep),
			detail: entryDetail(ep),
		})
	}

	for _, name := range m.TypeNames() {
		t := m.Types[name]
		items = append(items, explorerItem{
			kind:   kindType,
			name:   name,
			line:   typeStyle.Render(name) + "  " + typeSummary(t),
			detail: typeDetail(t),
		})
	}

	return items
}

func styledSignature(ep manifest.EntryPoint) string {
	params := make([]string, 0, len(ep.Inputs))
	for i, in := range ep.Inputs {
		pname := in.Name
		if pname == "" {
			pname = fmt.Sprintf("arg%d", i)
		}
		ty := typeStyle.Render(in.Type)
		if in.Unique {
			ty = uniqueStyle.Render("*") + ty
		}
		params = append(params, pname+": "+ty)
	}
	sig := "(" + strings.Join(params, ", ") + ")"
	if len(ep.Outputs) > 0 {
		rets := make([]string, 0, len(ep.Outputs))
		for _, out := range ep.Outputs {
			rets = append(rets, typeStyle.Render(out.Type))
		}
		sig += " -> " + strings.Join(rets, ", ")
	}
	return sig
}

func entryDetail(ep manifest.EntryPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "C function: %s\n", ep.CFun)
	if len(ep.Inputs) > 0 {
		b.WriteString("Inputs:\n")
		for i, in := range ep.Inputs {
			pname := in.Name
			if pname == "" {
				pname = fmt.Sprintf("arg%d", i)
			}
			unique := ""
			if in.Unique {
				unique = uniqueStyle.Render("  unique: consumed by the callee")
			}
			fmt.Fprintf(&b, "  %s: %s%s\n", pname, in.Type, unique)
		}
	}
	if len(ep.Outputs) > 0 {
		b.WriteString("Outputs:\n")
		for _, out := range ep.Outputs {
			fmt.Fprintf(&b, "  %s\n", out.Type)
		}
	}
	if len(ep.TuningParams) > 0 {
		fmt.Fprintf(&b, "Tuning params: %s\n", strings.Join(ep.TuningParams, ", "))
	}
	return b.String()
}

func typeDetail(t manifest.Type) string {
	var b strings.Builder
	switch t := t.(type) {
	case *manifest.ArrayType:
		fmt.Fprintf(&b, "C type: %s\n", t.CType)
		fmt.Fprintf(&b, "Element: %s, rank %d\n", t.Elem, t.Rank)
		b.WriteString("Operations:\n")
		fmt.Fprintf(&b, "  new:     %s\n", t.Ops.New)
		fmt.Fprintf(&b, "  free:    %s\n", t.Ops.Free)
		fmt.Fprintf(&b, "  shape:   %s\n", t.Ops.Shape)
		fmt.Fprintf(&b, "  values:  %s\n", t.Ops.Values)
		if t.Ops.ValuesRaw != "" {
			fmt.Fprintf(&b, "  raw:     %s\n", t.Ops.ValuesRaw)
		}

	case *manifest.OpaqueType:
		fmt.Fprintf(&b, "C type: %s\n", t.CType)
		b.WriteString("Operations:\n")
		fmt.Fprintf(&b, "  free:    %s\n", t.Ops.Free)
		if t.Ops.Store != "" {
			fmt.Fprintf(&b, "  store:   %s\n", t.Ops.Store)
		}
		if t.Ops.Restore != "" {
			fmt.Fprintf(&b, "  restore: %s\n", t.Ops.Restore)
		}
		if t.Record != nil {
			fmt.Fprintf(&b, "Record (constructor %s):\n", t.Record.New)
			for _, f := range t.Record.Fields {
				fmt.Fprintf(&b, "  %s: %s  (%s)\n", f.Name, f.Type, f.CFun)
			}
		}
		if t.Sum != nil {
			b.WriteString("Sum variants:\n")
			for _, v := range t.Sum.Variants {
				fmt.Fprintf(&b, "  %s(%s)\n", v.Name, strings.Join(v.Payload, ", "))
			}
		}
	}
	return b.String()
}

func runInteractive(load manifestLoader) error {
	p := tea.NewProgram(newExplorerModel(load), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
