package registry

import (
	"crypto/rand"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"weekplan/internal/domain"
)

// ErrNotFound signals a lookup miss. Callers treat it as a no-op; it
// is never surfaced to the end user.
var (
	ErrNotFound        = errors.New("task not found")
	ErrInvalidPriority = errors.New("priority must be between 1 and 4")
)

// Registry owns the canonical task list. Other components hold only
// task ids into it.
type Registry struct {
	mu    sync.Mutex
	tasks []domain.Task
	newID func() string
}

// New builds a registry over an initial task list, typically restored
// by the persistence collaborator.
func New(initial []domain.Task) *Registry {
	tasks := make([]domain.Task, len(initial))
	copy(tasks, initial)
	return &Registry{tasks: tasks, newID: generateID}
}

// Reconcile replaces the canonical task list from an ordered list of
// content strings. A content that exactly matches an existing task
// reuses it unchanged, so edits elsewhere in the list preserve
// identity and priority; anything else becomes a fresh unprioritized
// task. Tasks whose content no longer appears are dropped.
func (r *Registry) Reconcile(contents []string) []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Each existing task can satisfy one occurrence, so duplicate
	// contents never alias a single id.
	byContent := make(map[string][]domain.Task, len(r.tasks))
	for _, task := range r.tasks {
		byContent[task.Content] = append(byContent[task.Content], task)
	}

	next := make([]domain.Task, 0, len(contents))
	for _, content := range contents {
		if pool := byContent[content]; len(pool) > 0 {
			next = append(next, pool[0])
			byContent[content] = pool[1:]
			continue
		}
		next = append(next, domain.Task{ID: r.newID(), Content: content})
	}

	r.tasks = next
	return r.snapshotLocked()
}

// SetPriority assigns priority p to the task with that id.
func (r *Registry) SetPriority(id string, p domain.Priority) error {
	if !p.Valid() {
		return ErrInvalidPriority
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i].Priority = p
			return nil
		}
	}
	return ErrNotFound
}

// ClearPriority returns the task to the unprioritized pool.
func (r *Registry) ClearPriority(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks[i].Priority = domain.PriorityNone
			return nil
		}
	}
	return ErrNotFound
}

// Get resolves a task id. It implements ports.TaskResolver.
func (r *Registry) Get(id string) (domain.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.ID == id {
			return task, true
		}
	}
	return domain.Task{}, false
}

// Tasks returns a snapshot of the canonical list in its stored order.
func (r *Registry) Tasks() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.Task {
	out := make([]domain.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// ReorderByPriority stable-sorts tasks ascending by priority, with
// unprioritized tasks after all prioritized ones. Relative order is
// preserved among equal priorities.
func ReorderByPriority(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Priority) < rank(out[j].Priority)
	})
	return out
}

func rank(p domain.Priority) int {
	if !p.Valid() {
		return int(domain.PriorityMax) + 1
	}
	return int(p)
}

// PrioritySections enumerates the static metadata for the four
// priority levels, for assignment UIs.
func PrioritySections() []domain.PrioritySection {
	return []domain.PrioritySection{
		{ID: 1, Title: "Do first", Description: "Urgent and important", Color: "#dc2626"},
		{ID: 2, Title: "Schedule", Description: "Important, not urgent", Color: "#f59e0b"},
		{ID: 3, Title: "Delegate", Description: "Urgent, not important", Color: "#3b82f6"},
		{ID: 4, Title: "Someday", Description: "Neither urgent nor important", Color: "#6b7280"},
	}
}

func generateID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
