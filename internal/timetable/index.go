package timetable

import (
	"fmt"
	"sort"
	"time"

	"github.com/uniplan/timetable-api/internal/models"
)

// IndexedEvent carries the dimension keys one event occupies. Teacher and
// group are resolved from the owning course at insert time; ad hoc events
// occupy only the room dimension.
type IndexedEvent struct {
	ID        int64
	Begin     time.Time
	End       time.Time
	RoomID    int64
	TeacherID *int64
	GroupID   *int64
}

type indexEntry struct {
	begin   time.Time
	end     time.Time
	eventID int64
}

type dimensionRef struct {
	dim models.Dimension
	key int64
}

// ConflictIndex maintains, per dimension, begin-sorted interval lists keyed
// by resource id. Its content is always exactly derivable from the store's
// committed event set: every event mutation goes through Insert/Remove, and
// one call updates all dimensions of the event together.
type ConflictIndex struct {
	byDimension map[models.Dimension]map[int64][]indexEntry
	byEvent     map[int64][]dimensionRef
}

// NewConflictIndex returns an empty index covering the room, teacher and
// group dimensions.
func NewConflictIndex() *ConflictIndex {
	return &ConflictIndex{
		byDimension: map[models.Dimension]map[int64][]indexEntry{
			models.DimensionRoom:    make(map[int64][]indexEntry),
			models.DimensionTeacher: make(map[int64][]indexEntry),
			models.DimensionGroup:   make(map[int64][]indexEntry),
		},
		byEvent: make(map[int64][]dimensionRef),
	}
}

// Insert registers the event on every dimension it occupies.
func (x *ConflictIndex) Insert(ev IndexedEvent) {
	refs := []dimensionRef{{dim: models.DimensionRoom, key: ev.RoomID}}
	if ev.TeacherID != nil {
		refs = append(refs, dimensionRef{dim: models.DimensionTeacher, key: *ev.TeacherID})
	}
	if ev.GroupID != nil {
		refs = append(refs, dimensionRef{dim: models.DimensionGroup, key: *ev.GroupID})
	}
	entry := indexEntry{begin: ev.Begin, end: ev.End, eventID: ev.ID}
	for _, ref := range refs {
		x.insertEntry(ref, entry)
	}
	x.byEvent[ev.ID] = refs
}

// Remove unregisters the event from every dimension it occupies.
func (x *ConflictIndex) Remove(eventID int64) {
	refs, ok := x.byEvent[eventID]
	if !ok {
		return
	}
	for _, ref := range refs {
		entries := x.byDimension[ref.dim][ref.key]
		for i, entry := range entries {
			if entry.eventID == eventID {
				entries = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		if len(entries) == 0 {
			delete(x.byDimension[ref.dim], ref.key)
		} else {
			x.byDimension[ref.dim][ref.key] = entries
		}
	}
	delete(x.byEvent, eventID)
}

// QueryOverlaps returns the entries on (dim, key) whose interval overlaps
// [begin, end), ordered by begin then event id. The begin-sorted list lets a
// binary search cut the scan to entries starting before the window end.
// Calling with an unknown dimension is a programming error.
func (x *ConflictIndex) QueryOverlaps(dim models.Dimension, key int64, begin, end time.Time) []models.Conflict {
	keyed, ok := x.byDimension[dim]
	if !ok {
		panic(fmt.Sprintf("timetable: unknown conflict dimension %q", dim))
	}
	entries := keyed[key]
	// First entry starting at or after the window end; nothing from there on
	// can overlap.
	limit := sort.Search(len(entries), func(i int) bool {
		return !entries[i].begin.Before(end)
	})
	var out []models.Conflict
	for _, entry := range entries[:limit] {
		if entry.end.After(begin) {
			out = append(out, models.Conflict{
				Dimension: dim,
				EventID:   entry.eventID,
				Begin:     entry.begin,
				End:       entry.end,
			})
		}
	}
	return out
}

// Size returns the number of indexed events.
func (x *ConflictIndex) Size() int {
	return len(x.byEvent)
}

func (x *ConflictIndex) insertEntry(ref dimensionRef, entry indexEntry) {
	entries := x.byDimension[ref.dim][ref.key]
	pos := sort.Search(len(entries), func(i int) bool {
		if entries[i].begin.Equal(entry.begin) {
			return entries[i].eventID >= entry.eventID
		}
		return entries[i].begin.After(entry.begin)
	})
	entries = append(entries, indexEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = entry
	x.byDimension[ref.dim][ref.key] = entries
}
