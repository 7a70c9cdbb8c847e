// Package models defines the student record, its validation rules, and the import/export job record.
//
// Validation functions are pure: each takes a raw field, trims it, and returns the normalized value
// or a [shared.Error] of kind [shared.KindValidation] with a message suitable for display.
// [Student.Validate] and [ParseStudent] check fields in order (id, name, course, grade) and stop at the first failure.
package models
