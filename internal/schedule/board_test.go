package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/internal/domain"
)

type mapResolver map[string]domain.Task

func (m mapResolver) Get(id string) (domain.Task, bool) {
	task, ok := m[id]
	return task, ok
}

func TestAssignReplacesOccupiedSlot(t *testing.T) {
	t.Parallel()

	resolver := mapResolver{
		"a": {ID: "a", Content: "first"},
		"b": {ID: "b", Content: "second"},
	}
	board := New(resolver, nil)

	require.NoError(t, board.Assign(domain.Monday, domain.AM, 1, "a"))
	require.NoError(t, board.Assign(domain.Monday, domain.AM, 1, "b"))

	task, ok := board.Lookup(domain.Monday, domain.AM, 1)
	require.True(t, ok)
	assert.Equal(t, "b", task.ID)

	// Replace, never append: exactly one entry for the triple.
	assert.Len(t, board.Entries(), 1)
}

func TestAssignIsIdempotent(t *testing.T) {
	t.Parallel()

	board := New(mapResolver{"a": {ID: "a"}}, nil)

	require.NoError(t, board.Assign(domain.Friday, domain.PM, 2, "a"))
	require.NoError(t, board.Assign(domain.Friday, domain.PM, 2, "a"))

	assert.Len(t, board.Entries(), 1)
}

func TestAssignEmptyTaskClearsSlot(t *testing.T) {
	t.Parallel()

	board := New(mapResolver{"a": {ID: "a"}}, nil)

	require.NoError(t, board.Assign(domain.Tuesday, domain.AM, 1, "a"))
	require.NoError(t, board.Assign(domain.Tuesday, domain.AM, 1, ""))

	_, ok := board.Lookup(domain.Tuesday, domain.AM, 1)
	assert.False(t, ok)
	assert.Empty(t, board.Entries())
}

func TestClear(t *testing.T) {
	t.Parallel()

	board := New(mapResolver{"a": {ID: "a"}}, nil)

	require.NoError(t, board.Assign(domain.Sunday, domain.PM, 3, "a"))
	require.NoError(t, board.Clear(domain.Sunday, domain.PM, 3))

	_, ok := board.Lookup(domain.Sunday, domain.PM, 3)
	assert.False(t, ok)
}

func TestLookupDanglingTaskReadsAsEmpty(t *testing.T) {
	t.Parallel()

	resolver := mapResolver{}
	board := New(resolver, nil)

	// The task was deleted after assignment; the slot reads as empty,
	// not as an error.
	require.NoError(t, board.Assign(domain.Wednesday, domain.AM, 2, "gone"))
	_, ok := board.Lookup(domain.Wednesday, domain.AM, 2)
	assert.False(t, ok)
}

func TestAssignValidatesKey(t *testing.T) {
	t.Parallel()

	board := New(mapResolver{}, nil)

	assert.ErrorIs(t, board.Assign("funday", domain.AM, 1, "a"), ErrInvalidSlot)
	assert.ErrorIs(t, board.Assign(domain.Monday, "noon", 1, "a"), ErrInvalidSlot)
	assert.ErrorIs(t, board.Assign(domain.Monday, domain.AM, 0, "a"), ErrInvalidSlot)
	assert.ErrorIs(t, board.Assign(domain.Monday, domain.AM, domain.SlotsPerPeriod+1, "a"), ErrInvalidSlot)
}

func TestEntriesAreDayMajorOrdered(t *testing.T) {
	t.Parallel()

	board := New(mapResolver{}, nil)
	require.NoError(t, board.Assign(domain.Sunday, domain.AM, 1, "d"))
	require.NoError(t, board.Assign(domain.Monday, domain.PM, 2, "b"))
	require.NoError(t, board.Assign(domain.Monday, domain.AM, 3, "a"))
	require.NoError(t, board.Assign(domain.Monday, domain.PM, 1, "c"))

	entries := board.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "a", entries[0].TaskID)
	assert.Equal(t, "c", entries[1].TaskID)
	assert.Equal(t, "b", entries[2].TaskID)
	assert.Equal(t, "d", entries[3].TaskID)
}

func TestNewDropsMalformedInitialEntries(t *testing.T) {
	t.Parallel()

	board := New(mapResolver{"a": {ID: "a"}, "b": {ID: "b"}}, []domain.ScheduleEntry{
		{Day: domain.Monday, Period: domain.AM, Slot: 1, TaskID: "stale"},
		{Day: domain.Monday, Period: domain.AM, Slot: 1, TaskID: "a"}, // duplicate key: last wins
		{Day: "someday", Period: domain.AM, Slot: 1, TaskID: "b"},
		{Day: domain.Tuesday, Period: domain.PM, Slot: 99, TaskID: "b"},
		{Day: domain.Tuesday, Period: domain.PM, Slot: 2, TaskID: ""},
	})

	entries := board.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].TaskID)
}
