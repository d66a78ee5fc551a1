package planner

import (
	"context"
	"errors"
	"strings"

	"weekplan/internal/domain"
	"weekplan/internal/registry"
	"weekplan/internal/schedule"
	"weekplan/internal/session"
	"weekplan/internal/store"
)

// Service glues the capture session, task registry and schedule board
// together and keeps the persistence collaborator in sync after every
// mutation: fields flow into contents, contents reconcile into tasks,
// task ids land on the board.
type Service struct {
	session  *session.Session
	registry *registry.Registry
	board    *schedule.Board
	store    *store.Store
}

func New(captureSession *session.Session, taskRegistry *registry.Registry, board *schedule.Board, persistence *store.Store) *Service {
	return &Service{session: captureSession, registry: taskRegistry, board: board, store: persistence}
}

// Session exposes the capture session for the UI collaborator.
func (s *Service) Session() *session.Session {
	return s.session
}

// SyncFromFields turns the current capture fields into the canonical
// task list: blank fields are ignored, matching contents keep their
// identity and priority, and the result is persisted.
func (s *Service) SyncFromFields(ctx context.Context) ([]domain.Task, error) {
	fields := s.session.Fields()
	contents := make([]string, 0, len(fields))
	for _, field := range fields {
		text := strings.TrimSpace(field.Text)
		if text == "" {
			continue
		}
		contents = append(contents, text)
	}

	tasks := s.registry.Reconcile(contents)
	if err := s.store.SaveFields(ctx, fields); err != nil {
		return tasks, err
	}
	if err := s.store.SaveTasks(ctx, tasks); err != nil {
		return tasks, err
	}
	return tasks, nil
}

// SetPriority assigns a priority and persists. An unknown id is a
// silent no-op; it is never surfaced to the user.
func (s *Service) SetPriority(ctx context.Context, id string, p domain.Priority) error {
	if err := s.registry.SetPriority(id, p); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.store.SaveTasks(ctx, s.registry.Tasks())
}

// ClearPriority returns a task to the unprioritized pool and persists.
func (s *Service) ClearPriority(ctx context.Context, id string) error {
	if err := s.registry.ClearPriority(id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.store.SaveTasks(ctx, s.registry.Tasks())
}

// Assign places a task on the board and persists the schedule.
func (s *Service) Assign(ctx context.Context, day domain.Day, period domain.Period, slot int, taskID string) error {
	if err := s.board.Assign(day, period, slot, taskID); err != nil {
		return err
	}
	return s.store.SaveEntries(ctx, s.board.Entries())
}

// ClearSlot empties a slot and persists the schedule.
func (s *Service) ClearSlot(ctx context.Context, day domain.Day, period domain.Period, slot int) error {
	return s.Assign(ctx, day, period, slot, "")
}

// Lookup resolves a slot to its task, empty when unassigned or when
// the task has since been deleted.
func (s *Service) Lookup(day domain.Day, period domain.Period, slot int) (domain.Task, bool) {
	return s.board.Lookup(day, period, slot)
}

// Tasks returns the canonical task list.
func (s *Service) Tasks() []domain.Task {
	return s.registry.Tasks()
}

// TasksByPriority returns the canonical list ordered for assignment
// UIs: priority ascending, unprioritized last, stable.
func (s *Service) TasksByPriority() []domain.Task {
	return registry.ReorderByPriority(s.registry.Tasks())
}

// Entries returns the schedule in day-major order.
func (s *Service) Entries() []domain.ScheduleEntry {
	return s.board.Entries()
}

// ImportMarkdown appends every list item of a markdown plan as a
// capture field and reconciles. Returns how many items were imported.
func (s *Service) ImportMarkdown(ctx context.Context, source []byte) (int, error) {
	items := TaskLines(source)
	for _, item := range items {
		fields := s.session.AddEmptyField()
		if err := s.session.UpdateField(len(fields)-1, item); err != nil {
			return 0, err
		}
	}
	if _, err := s.SyncFromFields(ctx); err != nil {
		return 0, err
	}
	return len(items), nil
}
