package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniplan/timetable-api/internal/models"
)

func at(d time.Time, hour, min int) time.Time {
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestIndexQueryOverlapsOrderedAndHalfOpen(t *testing.T) {
	x := NewConflictIndex()
	monday := day(2026, time.September, 7)

	// Inserted out of begin order on purpose.
	x.Insert(IndexedEvent{ID: 2, Begin: at(monday, 12, 0), End: at(monday, 13, 30), RoomID: 1})
	x.Insert(IndexedEvent{ID: 1, Begin: at(monday, 9, 0), End: at(monday, 10, 30), RoomID: 1})
	x.Insert(IndexedEvent{ID: 3, Begin: at(monday, 10, 30), End: at(monday, 12, 0), RoomID: 1})

	found := x.QueryOverlaps(models.DimensionRoom, 1, at(monday, 8, 0), at(monday, 14, 0))
	require.Len(t, found, 3)
	assert.Equal(t, int64(1), found[0].EventID)
	assert.Equal(t, int64(3), found[1].EventID)
	assert.Equal(t, int64(2), found[2].EventID)

	// Intervals are half-open: touching boundaries do not overlap.
	assert.Empty(t, x.QueryOverlaps(models.DimensionRoom, 1, at(monday, 8, 0), at(monday, 9, 0)))
	assert.Empty(t, x.QueryOverlaps(models.DimensionRoom, 1, at(monday, 13, 30), at(monday, 15, 0)))
	assert.Len(t, x.QueryOverlaps(models.DimensionRoom, 1, at(monday, 10, 0), at(monday, 10, 31)), 2)
}

func TestIndexInsertCoversAllDimensions(t *testing.T) {
	x := NewConflictIndex()
	monday := day(2026, time.September, 7)
	teacherID := int64(7)
	groupID := int64(9)

	x.Insert(IndexedEvent{
		ID:        1,
		Begin:     at(monday, 9, 0),
		End:       at(monday, 10, 30),
		RoomID:    1,
		TeacherID: &teacherID,
		GroupID:   &groupID,
	})

	assert.Len(t, x.QueryOverlaps(models.DimensionRoom, 1, at(monday, 9, 0), at(monday, 10, 0)), 1)
	assert.Len(t, x.QueryOverlaps(models.DimensionTeacher, teacherID, at(monday, 9, 0), at(monday, 10, 0)), 1)
	assert.Len(t, x.QueryOverlaps(models.DimensionGroup, groupID, at(monday, 9, 0), at(monday, 10, 0)), 1)

	x.Remove(1)
	assert.Zero(t, x.Size())
	assert.Empty(t, x.QueryOverlaps(models.DimensionRoom, 1, at(monday, 9, 0), at(monday, 10, 0)))
	assert.Empty(t, x.QueryOverlaps(models.DimensionTeacher, teacherID, at(monday, 9, 0), at(monday, 10, 0)))
	assert.Empty(t, x.QueryOverlaps(models.DimensionGroup, groupID, at(monday, 9, 0), at(monday, 10, 0)))
}

func TestIndexRemoveUnknownEventIsNoop(t *testing.T) {
	x := NewConflictIndex()
	x.Remove(99)
	assert.Zero(t, x.Size())
}

func TestIndexUnknownDimensionPanics(t *testing.T) {
	x := NewConflictIndex()
	monday := day(2026, time.September, 7)
	assert.Panics(t, func() {
		x.QueryOverlaps(models.Dimension("BUILDING"), 1, at(monday, 9, 0), at(monday, 10, 0))
	})
}

func TestIndexMatchesBruteForce(t *testing.T) {
	x := NewConflictIndex()
	monday := day(2026, time.September, 7)

	type interval struct {
		id         int64
		begin, end time.Time
	}
	var all []interval
	// A deterministic lattice of overlapping intervals on one room.
	id := int64(1)
	for start := 0; start < 48; start += 3 {
		for length := 1; length <= 7; length += 3 {
			iv := interval{
				id:    id,
				begin: at(monday, 0, start*30),
				end:   at(monday, 0, (start+length)*30),
			}
			all = append(all, iv)
			x.Insert(IndexedEvent{ID: iv.id, Begin: iv.begin, End: iv.end, RoomID: 1})
			id++
		}
	}

	for probe := 0; probe < 50; probe += 5 {
		begin := at(monday, 0, probe*30)
		end := at(monday, 0, (probe+4)*30)

		var want []int64
		for _, iv := range all {
			if models.Overlaps(iv.begin, iv.end, begin, end) {
				want = append(want, iv.id)
			}
		}

		found := x.QueryOverlaps(models.DimensionRoom, 1, begin, end)
		got := make([]int64, 0, len(found))
		for _, c := range found {
			got = append(got, c.EventID)
		}
		assert.ElementsMatch(t, want, got, "window %s..%s", begin, end)
	}
}
