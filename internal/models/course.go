package models

import "time"

// ControlForm is one assessment form a course concludes with.
type ControlForm string

const (
	ControlCredit      ControlForm = "CREDIT"
	ControlCreditGrade ControlForm = "CREDIT_GRADE"
	ControlExam        ControlForm = "EXAM"
)

// Valid reports whether the control form is a known value.
func (c ControlForm) Valid() bool {
	switch c {
	case ControlCredit, ControlCreditGrade, ControlExam:
		return true
	}
	return false
}

// ControlSet is the explicit set of assessment forms for a course. It
// replaces the legacy controls bitmask while keeping the multiple-forms
// semantics.
type ControlSet []ControlForm

// Has reports whether the set contains the given control form.
func (s ControlSet) Has(c ControlForm) bool {
	for _, item := range s {
		if item == c {
			return true
		}
	}
	return false
}

// Course is an academic offering for one EduGroup, optionally taught by a
// Person, bounded by a [Begin, End] date window. Every committed event of a
// course must fall inside that window.
type Course struct {
	ID       int64      `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Elective bool       `json:"elective"`
	Credits  int        `json:"credits"`
	Controls ControlSet `json:"controls"`
	Begin    time.Time  `json:"begin"`
	End      time.Time  `json:"end"`
	PersonID *int64     `json:"person_id,omitempty"`
	GroupID  int64      `json:"edu_group_id"`
	Notes    string     `json:"notes,omitempty"`
}

// WindowContains reports whether the [begin, end) interval lies within the
// course date window. End is a date, so the window closes at midnight after
// the last day.
func (c Course) WindowContains(begin, end time.Time) bool {
	windowEnd := c.End.AddDate(0, 0, 1)
	return !begin.Before(c.Begin) && !end.After(windowEnd)
}
