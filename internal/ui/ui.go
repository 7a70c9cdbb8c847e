package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	FormView
	ConfirmView
	PromptView
	StatsView
)

type promptKind int

const (
	promptSearch promptKind = iota
	promptImport
	promptExport
)

// Service is the subset of [services.StudentService] the TUI drives.
type Service interface {
	SearchStudents(ctx context.Context, criteria map[string]any) []models.Student
	AddStudent(ctx context.Context, s *models.Student) error
	UpdateStudent(ctx context.Context, s *models.Student) error
	DeleteStudent(ctx context.Context, id string) error
	Stats(ctx context.Context) (*services.Stats, error)
	ImportAsync(ctx context.Context, path string, d tasks.Dispatcher, cb func(*services.ImportResult, error)) *tasks.Future[*services.ImportResult]
	ExportAsync(ctx context.Context, path string, format formatter.Format, d tasks.Dispatcher, cb func(*services.ExportResult, error)) *tasks.Future[*services.ExportResult]
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	svc      Service
	dispatch tasks.Dispatcher
	view     ViewState
	width    int
	height   int
	table    table.Model
	students []models.Student
	filter   string
	form     studentForm
	prompt   textinput.Model
	kind     promptKind
	pending  string
	stats    *services.Stats
	status   string
	failed   bool
	busy     int
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model. Import and export completions are posted through d,
// which must deliver them back to the program (see [ProgramDispatcher]).
func NewModel(ctx context.Context, svc Service, d tasks.Dispatcher) *Model {
	prompt := textinput.New()
	prompt.CharLimit = 256

	return &Model{
		ctx:      ctx,
		svc:      svc,
		dispatch: d,
		view:     ListView,
		table:    newStudentTable(),
		prompt:   prompt,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// ProgramDispatcher posts callbacks to p as messages so they run inside Update.
func ProgramDispatcher(p *tea.Program) tasks.Dispatcher {
	return tasks.DispatchFunc(func(fn func()) { p.Send(callbackMsg(fn)) })
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, svc Service) error {
	m := NewModel(ctx, svc, nil)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.dispatch = ProgramDispatcher(p)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init loads the roster.
func (m *Model) Init() tea.Cmd {
	return m.loadStudents()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(studentColumns(msg.Width))
		m.table.SetHeight(max(3, msg.Height-10))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case FormView:
			return m.handleFormKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case PromptView:
			return m.handlePromptKeys(msg)
		case StatsView:
			return m.handleStatsKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStudentsLoaded:
		m.students = msg.data.([]models.Student)
		m.table.SetRows(studentRows(m.students))
		if m.table.Cursor() >= len(m.students) {
			m.table.SetCursor(max(0, len(m.students)-1))
		}
		return m, nil

	case MsgStudentSaved:
		d := msg.data.(savedData)
		if d.err != nil {
			m.form.err = d.err
			return m, nil
		}
		verb := "added"
		if d.edit {
			verb = "updated"
		}
		m.view = ListView
		m.setStatus(fmt.Sprintf("Student %s %s", d.id, verb), false)
		return m, m.loadStudents()

	case MsgStudentDeleted:
		d := msg.data.(deletedData)
		if d.err != nil {
			m.setStatus(d.err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Student %s deleted", d.id), false)
		return m, m.loadStudents()

	case MsgStatsLoaded:
		d := msg.data.(statsData)
		if d.err != nil {
			m.view = ListView
			m.setStatus(d.err.Error(), true)
			return m, nil
		}
		m.stats = d.stats
		m.view = StatsView
		return m, nil

	case MsgCallback:
		msg.data.(func())()
		return m, m.loadStudents()
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case ListView:
		body = m.renderList()
	case FormView:
		body = m.renderForm()
	case ConfirmView:
		body = m.renderConfirm()
	case PromptView:
		body = m.renderPrompt()
	case StatsView:
		body = m.renderStats()
	}
	return body + "\n" + m.renderStatus()
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.filter != "" {
			m.filter = ""
			return m, m.loadStudents()
		}
		return m, nil
	case key.Matches(msg, m.keys.add):
		m.form = newStudentForm(nil)
		m.view = FormView
		return m, textinput.Blink
	case key.Matches(msg, m.keys.edit):
		if st := m.selected(); st != nil {
			m.form = newStudentForm(st)
			m.view = FormView
			return m, textinput.Blink
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if st := m.selected(); st != nil {
			m.pending = st.ID
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.search):
		return m, m.openPrompt(promptSearch, m.filter)
	case key.Matches(msg, m.keys.imp):
		return m, m.openPrompt(promptImport, "students.csv")
	case key.Matches(msg, m.keys.exp):
		return m, m.openPrompt(promptExport, "students.csv")
	case key.Matches(msg, m.keys.stats):
		return m, m.loadStats()
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadStudents()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = ListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !m.form.last() {
			return m, m.form.move(1)
		}
		return m, m.submitForm()
	case key.Matches(msg, m.keys.next):
		return m, m.form.move(1)
	case key.Matches(msg, m.keys.prev):
		return m, m.form.move(-1)
	}
	return m, m.form.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		id := m.pending
		m.pending = ""
		m.view = ListView
		return m, m.deleteStudent(id)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.pending = ""
		m.view = ListView
	}
	return m, nil
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.prompt.Blur()
		m.view = ListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		value := strings.TrimSpace(m.prompt.Value())
		m.prompt.Blur()
		m.view = ListView
		return m, m.submitPrompt(value)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *Model) handleStatsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = ListView
	}
	return m, nil
}

func (m *Model) openPrompt(kind promptKind, value string) tea.Cmd {
	m.kind = kind
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.view = PromptView
	return m.prompt.Focus()
}

func (m *Model) submitPrompt(value string) tea.Cmd {
	switch m.kind {
	case promptSearch:
		m.filter = value
		return m.loadStudents()
	case promptImport:
		return m.startImport(value)
	case promptExport:
		return m.startExport(value)
	}
	return nil
}

func (m *Model) submitForm() tea.Cmd {
	st, err := m.form.student()
	if err != nil {
		m.form.err = err
		return nil
	}
	m.form.err = nil

	edit := m.form.edit
	return func() tea.Msg {
		if edit {
			return studentSavedMsg(st.ID, true, m.svc.UpdateStudent(m.ctx, st))
		}
		return studentSavedMsg(st.ID, false, m.svc.AddStudent(m.ctx, st))
	}
}

func (m *Model) selected() *models.Student {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.students) {
		return nil
	}
	st := m.students[i]
	return &st
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

func (m *Model) loadStudents() tea.Cmd {
	criteria := map[string]any{"name": m.filter}
	return func() tea.Msg {
		return studentsLoadedMsg(m.svc.SearchStudents(m.ctx, criteria))
	}
}

func (m *Model) deleteStudent(id string) tea.Cmd {
	return func() tea.Msg {
		return studentDeletedMsg(id, m.svc.DeleteStudent(m.ctx, id))
	}
}

func (m *Model) loadStats() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.svc.Stats(m.ctx)
		return statsLoadedMsg(stats, err)
	}
}

// startImport queues the import. Its callback arrives as a [MsgCallback] and mutates the model inside Update.
func (m *Model) startImport(path string) tea.Cmd {
	m.busy++
	m.setStatus(fmt.Sprintf("Importing %s...", path), false)
	m.svc.ImportAsync(m.ctx, path, m.dispatch, func(r *services.ImportResult, err error) {
		m.busy--
		if err != nil {
			m.setStatus(fmt.Sprintf("Import failed: %v", err), true)
			return
		}
		m.setStatus(fmt.Sprintf("Imported %d, skipped %d, rejected %d from %s",
			r.Imported, r.Skipped, r.Invalid+r.Malformed, path), r.Invalid+r.Malformed > 0)
	})
	return nil
}

func (m *Model) startExport(path string) tea.Cmd {
	m.busy++
	m.setStatus(fmt.Sprintf("Exporting to %s...", path), false)
	m.svc.ExportAsync(m.ctx, path, "", m.dispatch, func(r *services.ExportResult, err error) {
		m.busy--
		if err != nil {
			m.setStatus(fmt.Sprintf("Export failed: %v", err), true)
			return
		}
		m.setStatus(fmt.Sprintf("Exported %d students to %s (%s)", r.Count, r.Path, r.Format), false)
	})
	return nil
}

func (m *Model) renderList() string {
	title := "Student Roster"
	if m.filter != "" {
		title = fmt.Sprintf("Student Roster (name contains %q)", m.filter)
	}

	var content string
	if len(m.students) == 0 {
		content = styles.help.Render("No students. Press a to add one or i to import a CSV file.")
	} else {
		content = styles.border.Render(m.table.View())
	}

	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), content, m.help.View(m.keys))
}

func (m *Model) renderForm() string {
	title := "Add Student"
	if m.form.edit {
		title = "Edit Student"
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n%s", styles.title.Render(title), m.form.view(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.warn.Render(fmt.Sprintf("Delete student %s?", m.pending))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n\n%s", title, helpView)
}

func (m *Model) renderPrompt() string {
	label := map[promptKind]string{
		promptSearch: "Search by name",
		promptImport: "Import CSV file",
		promptExport: "Export to file (.csv, .json, .md)",
	}[m.kind]
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(label), m.prompt.View(), helpView)
}

func (m *Model) renderStats() string {
	if m.stats == nil {
		return styles.help.Render("No statistics available")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Roster Statistics") + "\n")
	fmt.Fprintf(&b, "%s%d\n", styles.label.Render("Students"), m.stats.Count)
	if m.stats.Count > 0 {
		fmt.Fprintf(&b, "%s%.2f\n", styles.label.Render("Average"), m.stats.Average)
		fmt.Fprintf(&b, "%s%.2f\n", styles.label.Render("Lowest"), m.stats.Min)
		fmt.Fprintf(&b, "%s%.2f\n", styles.label.Render("Highest"), m.stats.Max)
		b.WriteString("\n" + styles.ok.Render("Courses") + "\n")
		for _, c := range m.stats.ByCourse {
			fmt.Fprintf(&b, "  • %s: %d\n", c.Course, c.Count)
		}
	}
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderStatus() string {
	switch {
	case m.status == "":
		return ""
	case m.failed:
		return styles.err.Render(m.status)
	case m.busy > 0:
		return styles.warn.Render(m.status)
	default:
		return styles.ok.Render(m.status)
	}
}
