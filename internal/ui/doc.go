// Package ui implements an interactive terminal interface for the roster using bubbletea's Elm architecture.
//
// Views:
//  1. [ListView] : Browse the roster in a table, filter by name
//  2. [FormView] : Add or edit a student
//  3. [ConfirmView] : Confirm a delete
//  4. [PromptView] : Enter a search term or an import/export path
//  5. [StatsView] : Grade summary and course enrollment
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Imports and exports run on the service's worker pool; their completion callbacks are posted back to the program
// through [ProgramDispatcher] and run inside Update, so the model is only ever touched by the program goroutine.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
