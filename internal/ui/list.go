package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/desertthunder/roster/internal/models"
)

func studentColumns(width int) []table.Column {
	name := max(16, (width-12-10-8)/2)
	return []table.Column{
		{Title: "ID", Width: 12},
		{Title: "Name", Width: name},
		{Title: "Course", Width: name},
		{Title: "Grade", Width: 8},
	}
}

func studentRows(students []models.Student) []table.Row {
	rows := make([]table.Row, len(students))
	for i, st := range students {
		rows[i] = table.Row{st.ID, st.Name, st.Course, fmt.Sprintf("%.2f", st.Grade)}
	}
	return rows
}

func newStudentTable() table.Model {
	return table.New(
		table.WithColumns(studentColumns(0)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(styles.tableStyles()),
	)
}
