// Package tasks runs slow record operations off the interactive path and reports on them.
//
// # Worker Pool
//
// [Pool] is a fixed set of worker goroutines. [Submit] queues a function and returns a [Future]
// that resolves exactly once with its value or error:
//   - a task whose context is cancelled before a worker picks it up resolves with ctx.Err() and never runs
//   - a task that panics resolves with an Unknown error carrying the panic value
//   - a task submitted after [Pool.Close] resolves with [shared.ErrPoolClosed]
//
// # Dispatch
//
// Completion callbacks are delivered through a [Dispatcher]. [Loop] runs every callback on one
// dedicated goroutine in posting order, the way a UI thread would. [Inline] runs the callback on
// whichever goroutine completed the task.
//
// # Progress Reporting
//
// Long operations accept a send-only [ProgressUpdate] channel. Updates are sent with select/default,
// so a slow or absent reader never stalls the work; a nil channel disables reporting.
//
// # Bulk Export
//
// [BulkExport] writes the same roster in several formats at once, one pool task per format,
// and records the outcome in a JSON manifest next to the files.
package tasks
