// Package services implements the student record business rules on top of a [Store].
//
// # Order of Checks
//
// Every write follows the same sequence: validate the input, check whether the ID exists,
// then touch the store. Each step fails with a distinct [shared.ErrorKind]:
//   - [shared.ErrValidation] : a field failed its format or range check
//   - [shared.ErrDuplicateID] : AddStudent with an ID that is already stored
//   - [shared.ErrNotFound] : UpdateStudent, DeleteStudent, or GetStudentByID on an unknown ID
//   - [shared.ErrDatabase] : the store failed after the checks passed
//
// Read paths used for display ([StudentService.ListStudents], [StudentService.SearchStudents])
// never fail: store errors are logged and an empty slice is returned.
//
// # Bulk File Operations
//
// Import and export run on the service's [tasks.Pool]. The synchronous forms block the caller;
// the Async forms return a [tasks.Future] and optionally deliver the result to a callback
// through a [tasks.Dispatcher].
//
// Import merges by ID: records whose ID is already stored are skipped, everything else goes
// through [StudentService.AddStudent] so invalid rows are counted instead of aborting the run.
//
// When a [JobRecorder] is configured, each bulk run is recorded as a [models.Job].
package services
