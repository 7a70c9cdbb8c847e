package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/roster/internal/models"
)

const (
	fieldID = iota
	fieldName
	fieldCourse
	fieldGrade
	fieldCount
)

var fieldLabels = [fieldCount]string{"ID", "Name", "Course", "Grade"}

// studentForm collects the four student fields. In edit mode the ID is fixed.
type studentForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	edit   bool
	err    error
}

func newStudentForm(st *models.Student) studentForm {
	f := studentForm{edit: st != nil}
	placeholders := [fieldCount]string{"S100", "Ann Lee", "Algebra", "0-100"}
	limits := [fieldCount]int{10, 50, 50, 8}

	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		f.inputs[i] = in
	}

	if st != nil {
		f.inputs[fieldID].SetValue(st.ID)
		f.inputs[fieldName].SetValue(st.Name)
		f.inputs[fieldCourse].SetValue(st.Course)
		f.inputs[fieldGrade].SetValue(fmt.Sprintf("%.2f", st.Grade))
		f.focus = fieldName
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f *studentForm) first() int {
	if f.edit {
		return fieldName
	}
	return fieldID
}

// move shifts focus by delta, wrapping within the editable fields.
func (f *studentForm) move(delta int) tea.Cmd {
	first := f.first()
	n := fieldCount - first
	f.inputs[f.focus].Blur()
	f.focus = first + ((f.focus-first+delta)%n+n)%n
	return f.inputs[f.focus].Focus()
}

func (f *studentForm) last() bool { return f.focus == fieldCount-1 }

func (f *studentForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// student parses the inputs into a validated record.
func (f *studentForm) student() (*models.Student, error) {
	return models.ParseStudent(
		f.inputs[fieldID].Value(),
		f.inputs[fieldName].Value(),
		f.inputs[fieldCourse].Value(),
		f.inputs[fieldGrade].Value(),
	)
}

func (f *studentForm) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		b.WriteString(styles.label.Render(fieldLabels[i]))
		if i == fieldID && f.edit {
			b.WriteString(in.Value())
		} else {
			b.WriteString(in.View())
		}
		b.WriteByte('\n')
	}
	if f.err != nil {
		b.WriteString("\n" + styles.err.Render(f.err.Error()) + "\n")
	}
	return b.String()
}
