package models

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/roster/internal/shared"
)

const (
	MinIDLength     = 3
	MaxIDLength     = 10
	MinNameLength   = 2
	MaxNameLength   = 50
	MinCourseLength = 2
	MaxCourseLength = 50
	MinGrade        = 0.0
	MaxGrade        = 100.0
)

var (
	idPattern   = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	namePattern = regexp.MustCompile(`^[a-zA-Z\s-]+$`)
)

func required(value, field string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", shared.ValidationError(field + " cannot be empty")
	}
	return v, nil
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// ValidateID checks a student ID: alphanumeric, 3 to 10 characters.
func ValidateID(id string) (string, error) {
	v, err := required(id, "Student ID")
	if err != nil {
		return "", err
	}
	if !idPattern.MatchString(v) {
		return "", shared.ValidationError("Student ID must contain only letters and numbers")
	}
	if !between(v, MinIDLength, MaxIDLength) {
		return "", shared.ValidationError("Student ID must be between 3 and 10 characters")
	}
	return v, nil
}

// ValidateName checks a student name: letters, spaces, and hyphens, 2 to 50 characters.
func ValidateName(name string) (string, error) {
	v, err := required(name, "Name")
	if err != nil {
		return "", err
	}
	if !namePattern.MatchString(v) {
		return "", shared.ValidationError("Name must contain only letters, spaces, and hyphens")
	}
	if !between(v, MinNameLength, MaxNameLength) {
		return "", shared.ValidationError("Name must be between 2 and 50 characters")
	}
	return v, nil
}

// ValidateCourse checks a course name: 2 to 50 characters.
func ValidateCourse(course string) (string, error) {
	v, err := required(course, "Course")
	if err != nil {
		return "", err
	}
	if !between(v, MinCourseLength, MaxCourseLength) {
		return "", shared.ValidationError("Course name must be between 2 and 50 characters")
	}
	return v, nil
}

// ValidateGrade parses a grade and checks that it lies in [0, 100].
func ValidateGrade(grade string) (float64, error) {
	v, err := required(grade, "Grade")
	if err != nil {
		return 0, err
	}
	g, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, shared.ValidationError("Grade must be a number")
	}
	return ValidateGradeValue(g)
}

// ValidateGradeValue checks that g lies in [0, 100].
func ValidateGradeValue(g float64) (float64, error) {
	if math.IsNaN(g) || g < MinGrade || g > MaxGrade {
		return 0, shared.ValidationError("Grade must be between 0 and 100")
	}
	return g, nil
}

// ParseStudent validates raw form or CSV fields and builds a normalized [Student].
func ParseStudent(id, name, course, grade string) (*Student, error) {
	var (
		s   Student
		err error
	)
	if s.ID, err = ValidateID(id); err != nil {
		return nil, err
	}
	if s.Name, err = ValidateName(name); err != nil {
		return nil, err
	}
	if s.Course, err = ValidateCourse(course); err != nil {
		return nil, err
	}
	if s.Grade, err = ValidateGrade(grade); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every field and normalizes the string fields in place.
//
// The first failing field's error is returned.
func (s *Student) Validate() error {
	if s == nil {
		return shared.ValidationError("Student is required")
	}

	id, err := ValidateID(s.ID)
	if err != nil {
		return err
	}
	name, err := ValidateName(s.Name)
	if err != nil {
		return err
	}
	course, err := ValidateCourse(s.Course)
	if err != nil {
		return err
	}
	if _, err := ValidateGradeValue(s.Grade); err != nil {
		return err
	}

	s.ID, s.Name, s.Course = id, name, course
	return nil
}
