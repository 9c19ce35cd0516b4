package models

// Degree is the qualification level an EduGroup studies towards.
type Degree string

const (
	DegreeBachelor Degree = "BACHELOR"
	DegreeMaster   Degree = "MASTER"
	DegreePHD      Degree = "PHD"
)

// Valid reports whether the degree is one of the known levels.
func (d Degree) Valid() bool {
	switch d {
	case DegreeBachelor, DegreeMaster, DegreePHD:
		return true
	}
	return false
}

// EduGroup is a cohort of students admitted in a given year.
type EduGroup struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Year     int    `json:"year"`
	Degree   Degree `json:"degree"`
	Students int    `json:"students"`
	Notes    string `json:"notes,omitempty"`
}
