package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	checkedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	descStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
)

// Terminal renders prompts as interactive bubbletea programs.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a Terminal reading keys from in and drawing to out.
// Nil arguments default to os.Stdin and os.Stderr.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Terminal{in: in, out: out}
}

// run executes m until it quits. Cancellation of ctx kills the program and
// is returned as ctx.Err().
func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return final, nil
}

// MultiSelect implements Prompter.
func (t *Terminal) MultiSelect(ctx context.Context, req MultiSelectRequest) (Selection, error) {
	if len(req.Options) == 0 {
		return Selection{}, fmt.Errorf("%s: %w", req.Title, ErrNoOptions)
	}
	final, err := t.run(ctx, newListModel(req.Title, req.Options, req.AllowBack, true))
	if err != nil {
		return Selection{}, err
	}
	return final.(*listModel).selection(), nil
}

// SingleSelect implements Prompter.
func (t *Terminal) SingleSelect(ctx context.Context, req SingleSelectRequest) (Selection, error) {
	if len(req.Options) == 0 {
		return Selection{}, fmt.Errorf("%s: %w", req.Title, ErrNoOptions)
	}
	final, err := t.run(ctx, newListModel(req.Title, req.Options, req.AllowBack, false))
	if err != nil {
		return Selection{}, err
	}
	return final.(*listModel).selection(), nil
}

// SaveLocation implements Prompter. A relative answer is resolved against
// the working directory.
func (t *Terminal) SaveLocation(ctx context.Context, req SaveRequest) (string, Action, error) {
	final, err := t.run(ctx, newSaveModel(req))
	if err != nil {
		return "", ActionCancel, err
	}
	m := final.(*saveModel)
	if m.action != ActionAccept {
		return "", m.action, nil
	}
	p, err := EnsureExt(m.input.Value(), req.Extension)
	if err != nil {
		return "", ActionCancel, err
	}
	return p, ActionAccept, nil
}

// Confirm implements Confirmer. Dismissing the prompt answers no.
func (t *Terminal) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	final, err := t.run(ctx, &confirmModel{title: req.Title, answer: req.Default})
	if err != nil {
		return false, err
	}
	m := final.(*confirmModel)
	return m.action == ActionAccept && m.answer, nil
}

// listModel is a checkbox list (multi) or a plain list (single).
type listModel struct {
	title     string
	options   []Option
	checked   []bool
	multi     bool
	allowBack bool

	cursor int
	action Action
	done   bool
}

func newListModel(title string, opts []Option, allowBack, multi bool) *listModel {
	m := &listModel{
		title:     title,
		options:   opts,
		checked:   make([]bool, len(opts)),
		multi:     multi,
		allowBack: allowBack,
		action:    ActionCancel,
	}
	for i, o := range opts {
		m.checked[i] = multi && o.Checked
	}
	return m
}

// Init implements tea.Model.
func (m *listModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		return m.finish(ActionCancel)
	case "b", "backspace", "left":
		if m.allowBack {
			return m.finish(ActionBack)
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case " ", "space", "x":
		if m.multi {
			m.checked[m.cursor] = !m.checked[m.cursor]
		}
	case "a":
		if m.multi {
			all := !m.allChecked()
			for i := range m.checked {
				m.checked[i] = all
			}
		}
	case "enter":
		return m.finish(ActionAccept)
	}
	return m, nil
}

func (m *listModel) finish(a Action) (tea.Model, tea.Cmd) {
	m.action = a
	m.done = true
	return m, tea.Quit
}

func (m *listModel) allChecked() bool {
	for _, c := range m.checked {
		if !c {
			return false
		}
	}
	return true
}

// selection converts the final model state into a Selection.
func (m *listModel) selection() Selection {
	sel := Selection{Action: m.action}
	if m.action != ActionAccept {
		return sel
	}
	if !m.multi {
		sel.Indices = []int{m.cursor}
		return sel
	}
	for i, c := range m.checked {
		if c {
			sel.Indices = append(sel.Indices, i)
		}
	}
	return sel
}

// View implements tea.Model.
func (m *listModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	for i, o := range m.options {
		cursor := "  "
		label := o.Label
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
			label = selectedStyle.Render(label)
		}
		b.WriteString(cursor)
		if m.multi {
			if m.checked[i] {
				b.WriteString(checkedStyle.Render("[x] "))
			} else {
				b.WriteString("[ ] ")
			}
		}
		b.WriteString(label)
		if o.Description != "" {
			b.WriteString("  ")
			b.WriteString(descStyle.Render(o.Description))
		}
		b.WriteString("\n")
	}

	help := "↑/↓ move • enter accept • esc cancel"
	if m.multi {
		help = "↑/↓ move • space toggle • a all • enter accept • esc cancel"
	}
	if m.allowBack {
		help += " • b back"
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

// saveModel asks for a file path, pre-filled with the default.
type saveModel struct {
	title  string
	input  textinput.Model
	action Action
	done   bool
}

func newSaveModel(req SaveRequest) *saveModel {
	ti := textinput.New()
	ti.Placeholder = req.DefaultPath
	ti.CharLimit = 4096
	ti.SetValue(req.DefaultPath)
	ti.CursorEnd()
	ti.Focus()

	title := req.Title
	if title == "" {
		title = "Save archive as"
	}
	return &saveModel{title: title, input: ti, action: ActionCancel}
}

// Init implements tea.Model.
func (m *saveModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *saveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.action = ActionCancel
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.action = ActionAccept
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *saveModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n",
		titleStyle.Render(m.title),
		m.input.View(),
		helpStyle.Render("enter save • esc cancel"),
	)
}

// confirmModel is a yes/no question.
type confirmModel struct {
	title  string
	answer bool
	action Action
	done   bool
}

// Init implements tea.Model.
func (m *confirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.action = ActionCancel
	case "y", "Y":
		m.answer = true
		m.action = ActionAccept
	case "n", "N":
		m.answer = false
		m.action = ActionAccept
	case "enter":
		m.action = ActionAccept
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

// View implements tea.Model.
func (m *confirmModel) View() string {
	if m.done {
		return ""
	}
	hint := "y/N"
	if m.answer {
		hint = "Y/n"
	}
	return fmt.Sprintf("%s %s ", titleStyle.Render(m.title), helpStyle.Render("["+hint+"]"))
}
