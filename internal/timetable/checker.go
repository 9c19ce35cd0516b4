package timetable

import (
	"github.com/uniplan/timetable-api/internal/models"
)

// FeasibilityResult is the outcome of a constraint check. Infeasibility is a
// representable result, never an error.
type FeasibilityResult struct {
	Feasible  bool
	Conflicts []models.Conflict
}

// Checker decides whether a candidate event placement violates a hard
// constraint. It is a pure read over the store and the conflict index.
type Checker struct {
	store *Store
	index *ConflictIndex
}

// NewChecker wires a checker over the given store and index.
func NewChecker(store *Store, index *ConflictIndex) *Checker {
	return &Checker{store: store, index: index}
}

// Check evaluates the candidate in the fixed order room, teacher, group,
// course window, so results are deterministic across runs. exclude, when
// non-zero, ignores that event id in overlap results; reschedule uses it to
// keep an event from conflicting with itself.
func (c *Checker) Check(candidate models.Event, exclude int64) FeasibilityResult {
	var conflicts []models.Conflict

	conflicts = appendExcluding(conflicts,
		c.index.QueryOverlaps(models.DimensionRoom, candidate.RoomID, candidate.Begin, candidate.End), exclude)

	if candidate.CourseID != nil {
		if course, err := c.store.Course(*candidate.CourseID); err == nil {
			if course.PersonID != nil {
				conflicts = appendExcluding(conflicts,
					c.index.QueryOverlaps(models.DimensionTeacher, *course.PersonID, candidate.Begin, candidate.End), exclude)
			}
			conflicts = appendExcluding(conflicts,
				c.index.QueryOverlaps(models.DimensionGroup, course.GroupID, candidate.Begin, candidate.End), exclude)
			if !course.WindowContains(candidate.Begin, candidate.End) {
				conflicts = append(conflicts, models.Conflict{
					Dimension: models.DimensionCourseWindow,
					Begin:     course.Begin,
					End:       course.End.AddDate(0, 0, 1),
				})
			}
		}
	}

	return FeasibilityResult{Feasible: len(conflicts) == 0, Conflicts: conflicts}
}

func appendExcluding(dst, found []models.Conflict, exclude int64) []models.Conflict {
	for _, conflict := range found {
		if exclude != 0 && conflict.EventID == exclude {
			continue
		}
		dst = append(dst, conflict)
	}
	return dst
}
