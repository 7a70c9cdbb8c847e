package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStudentsLoaded MsgKind = iota
	MsgStudentSaved
	MsgStudentDeleted
	MsgStatsLoaded
	// MsgCallback carries a completion callback posted by a background task.
	MsgCallback
)

type savedData struct {
	id   string
	edit bool
	err  error
}

type deletedData struct {
	id  string
	err error
}

type statsData struct {
	stats *services.Stats
	err   error
}

// studentsLoadedMsg is the constructor for [MsgStudentsLoaded]
func studentsLoadedMsg(students []models.Student) Msg {
	return Msg{kind: MsgStudentsLoaded, data: students}
}

// studentSavedMsg is the constructor for [MsgStudentSaved]
func studentSavedMsg(id string, edit bool, err error) Msg {
	return Msg{kind: MsgStudentSaved, data: savedData{id, edit, err}}
}

// studentDeletedMsg is the constructor for [MsgStudentDeleted]
func studentDeletedMsg(id string, err error) Msg {
	return Msg{kind: MsgStudentDeleted, data: deletedData{id, err}}
}

// statsLoadedMsg is the constructor for [MsgStatsLoaded]
func statsLoadedMsg(stats *services.Stats, err error) Msg {
	return Msg{kind: MsgStatsLoaded, data: statsData{stats, err}}
}

// callbackMsg is the constructor for [MsgCallback]
func callbackMsg(fn func()) Msg {
	return Msg{kind: MsgCallback, data: fn}
}
