package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekplan/internal/domain"
)

func newTestRegistry(initial []domain.Task) *Registry {
	r := New(initial)
	counter := 0
	r.newID = func() string {
		counter++
		return fmt.Sprintf("task-%d", counter)
	}
	return r
}

func TestReconcilePreservesIdentityAndPriority(t *testing.T) {
	t.Parallel()

	r := newTestRegistry([]domain.Task{
		{ID: "a1", Content: "buy milk", Priority: 2},
	})

	tasks := r.Reconcile([]string{"buy milk", "walk the dog"})

	require.Len(t, tasks, 2)
	assert.Equal(t, "a1", tasks[0].ID)
	assert.Equal(t, domain.Priority(2), tasks[0].Priority)
	assert.Equal(t, "walk the dog", tasks[1].Content)
	assert.NotEmpty(t, tasks[1].ID)
	assert.Equal(t, domain.PriorityNone, tasks[1].Priority)
}

func TestReconcileIsAuthoritativeReplace(t *testing.T) {
	t.Parallel()

	r := newTestRegistry([]domain.Task{
		{ID: "a1", Content: "a"},
		{ID: "b2", Content: "b", Priority: 1},
	})

	tasks := r.Reconcile([]string{"b", "c"})

	require.Len(t, tasks, 2)
	assert.Equal(t, "b2", tasks[0].ID)
	assert.Equal(t, domain.Priority(1), tasks[0].Priority)
	assert.Equal(t, "c", tasks[1].Content)

	// Task "a" is gone from the canonical list.
	_, ok := r.Get("a1")
	assert.False(t, ok)
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(nil)

	first := r.Reconcile([]string{"one", "two", "three"})
	second := r.Reconcile([]string{"one", "two", "three"})

	require.Equal(t, first, second)
}

func TestReconcileDuplicateContentsKeepDistinctIDs(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(nil)

	first := r.Reconcile([]string{"tea", "tea"})
	require.Len(t, first, 2)
	assert.NotEqual(t, first[0].ID, first[1].ID)

	// Both survive a second reconcile with their own identity.
	second := r.Reconcile([]string{"tea", "tea"})
	require.Equal(t, first, second)
}

func TestReconcileOrderFollowsContents(t *testing.T) {
	t.Parallel()

	r := newTestRegistry([]domain.Task{
		{ID: "x", Content: "x"},
		{ID: "y", Content: "y"},
	})

	tasks := r.Reconcile([]string{"y", "x"})

	require.Len(t, tasks, 2)
	assert.Equal(t, "y", tasks[0].ID)
	assert.Equal(t, "x", tasks[1].ID)
}

func TestSetPriority(t *testing.T) {
	t.Parallel()

	r := newTestRegistry([]domain.Task{{ID: "a1", Content: "a"}})

	require.NoError(t, r.SetPriority("a1", 3))
	task, ok := r.Get("a1")
	require.True(t, ok)
	assert.Equal(t, domain.Priority(3), task.Priority)

	assert.ErrorIs(t, r.SetPriority("missing", 1), ErrNotFound)
	assert.ErrorIs(t, r.SetPriority("a1", 9), ErrInvalidPriority)
	assert.ErrorIs(t, r.SetPriority("a1", 0), ErrInvalidPriority)
}

func TestClearPriority(t *testing.T) {
	t.Parallel()

	r := newTestRegistry([]domain.Task{{ID: "a1", Content: "a", Priority: 4}})

	require.NoError(t, r.ClearPriority("a1"))
	task, _ := r.Get("a1")
	assert.Equal(t, domain.PriorityNone, task.Priority)

	assert.ErrorIs(t, r.ClearPriority("missing"), ErrNotFound)
}

func TestReorderByPriority(t *testing.T) {
	t.Parallel()

	tasks := []domain.Task{
		{ID: "1", Content: "none-a"},
		{ID: "2", Content: "p2-a", Priority: 2},
		{ID: "3", Content: "p1", Priority: 1},
		{ID: "4", Content: "none-b"},
		{ID: "5", Content: "p2-b", Priority: 2},
	}

	ordered := ReorderByPriority(tasks)

	ids := make([]string, len(ordered))
	for i, task := range ordered {
		ids[i] = task.ID
	}
	// Ascending by priority, unprioritized last, stable among equals.
	assert.Equal(t, []string{"3", "2", "5", "1", "4"}, ids)

	// Input order untouched.
	assert.Equal(t, "1", tasks[0].ID)
}

func TestPrioritySections(t *testing.T) {
	t.Parallel()

	sections := PrioritySections()
	require.Len(t, sections, 4)
	for i, section := range sections {
		assert.Equal(t, domain.Priority(i+1), section.ID)
		assert.NotEmpty(t, section.Title)
		assert.NotEmpty(t, section.Color)
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	t.Parallel()

	r := New(nil)
	tasks := r.Reconcile([]string{"a", "b", "c"})
	seen := map[string]bool{}
	for _, task := range tasks {
		require.Len(t, task.ID, 26)
		assert.False(t, seen[task.ID])
		seen[task.ID] = true
	}
}
