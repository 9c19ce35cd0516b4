package models

// Person is an individual known to the institution, typically a teacher,
// but any person a user account or a course can be attached to.
type Person struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Patronymic string `json:"patronymic,omitempty"`
	Maiden     string `json:"maiden,omitempty"`
	Phones     string `json:"phones,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// FullName renders the display name used in schedules and exports.
func (p Person) FullName() string {
	if p.Patronymic != "" {
		return p.Surname + " " + p.Name + " " + p.Patronymic
	}
	return p.Surname + " " + p.Name
}
