package models

// Room is a physical space events are placed into. A nil Capacity means the
// room is treated as unconstrained.
type Room struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Building string `json:"building"`
	Capacity *int   `json:"capacity,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Fits reports whether a cohort of the given headcount fits into the room.
func (r Room) Fits(headcount int) bool {
	return r.Capacity == nil || *r.Capacity >= headcount
}
