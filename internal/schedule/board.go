package schedule

import (
	"errors"
	"sort"
	"sync"

	"weekplan/internal/domain"
	"weekplan/internal/ports"
)

// ErrInvalidSlot signals a (day, period, slot) key outside the fixed
// planning grid.
var ErrInvalidSlot = errors.New("invalid schedule slot")

type slotKey struct {
	day    domain.Day
	period domain.Period
	slot   int
}

// Board maps (day, period, slot) triples to task ids, at most one task
// per triple. Uniqueness is structural: the entry map is keyed by the
// triple, so assigning an occupied slot replaces the prior entry.
type Board struct {
	resolver ports.TaskResolver

	mu      sync.Mutex
	entries map[slotKey]string
}

// New builds a board over an initial entry list, typically restored by
// the persistence collaborator. Entries with invalid keys or empty
// task ids are dropped; duplicate keys keep the last entry.
func New(resolver ports.TaskResolver, initial []domain.ScheduleEntry) *Board {
	board := &Board{resolver: resolver, entries: make(map[slotKey]string, len(initial))}
	for _, entry := range initial {
		key, err := keyOf(entry.Day, entry.Period, entry.Slot)
		if err != nil || entry.TaskID == "" {
			continue
		}
		board.entries[key] = entry.TaskID
	}
	return board
}

// Assign places taskID at the triple, replacing whatever was there.
// An empty taskID clears the slot.
func (b *Board) Assign(day domain.Day, period domain.Period, slot int, taskID string) error {
	key, err := keyOf(day, period, slot)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if taskID == "" {
		delete(b.entries, key)
		return nil
	}
	b.entries[key] = taskID
	return nil
}

// Clear empties the slot at the triple.
func (b *Board) Clear(day domain.Day, period domain.Period, slot int) error {
	return b.Assign(day, period, slot, "")
}

// Lookup resolves the slot's task against the current task registry.
// A slot whose task has since been deleted reads as empty.
func (b *Board) Lookup(day domain.Day, period domain.Period, slot int) (domain.Task, bool) {
	key, err := keyOf(day, period, slot)
	if err != nil {
		return domain.Task{}, false
	}

	b.mu.Lock()
	taskID, ok := b.entries[key]
	b.mu.Unlock()
	if !ok {
		return domain.Task{}, false
	}
	return b.resolver.Get(taskID)
}

// Entries returns the flat order-preserving representation for the
// persistence collaborator: day-major, then period, then slot.
func (b *Board) Entries() []domain.ScheduleEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.ScheduleEntry, 0, len(b.entries))
	for key, taskID := range b.entries {
		out = append(out, domain.ScheduleEntry{Day: key.day, Period: key.period, Slot: key.slot, TaskID: taskID})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return dayIndex(out[i].Day) < dayIndex(out[j].Day)
		}
		if out[i].Period != out[j].Period {
			return out[i].Period == domain.AM
		}
		return out[i].Slot < out[j].Slot
	})
	return out
}

func keyOf(day domain.Day, period domain.Period, slot int) (slotKey, error) {
	if !day.Valid() || !period.Valid() || slot < 1 || slot > domain.SlotsPerPeriod {
		return slotKey{}, ErrInvalidSlot
	}
	return slotKey{day: day, period: period, slot: slot}, nil
}

func dayIndex(day domain.Day) int {
	for i, d := range domain.Week {
		if d == day {
			return i
		}
	}
	return len(domain.Week)
}
