package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"weekplan/internal/domain"
)

type noopSink struct{}

func (noopSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (noopSink) FieldsChanged([]domain.CaptureField)                                {}
func (noopSink) InterimTranscript(string)                                           {}
func (noopSink) CountdownTick(int)                                                  {}
func (noopSink) SessionError(domain.CaptureError)                                   {}

func TestBuildAssemblesServices(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WEEKPLAN_DATA_DIR", t.TempDir())
	t.Setenv("WEEKPLAN_RULES_FILE", "")

	services, err := Build(context.Background(), noopSink{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer services.DB.Close()

	if services.Planner == nil {
		t.Fatal("planner not wired")
	}
	if services.Planner.Session() == nil {
		t.Fatal("capture session not wired")
	}
	if services.Config.Session.CountdownTicks != 120 {
		t.Errorf("countdown = %d", services.Config.Session.CountdownTicks)
	}

	// The store is usable right away.
	if _, err := services.Planner.SyncFromFields(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestBuildRestoresPersistedState(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WEEKPLAN_DATA_DIR", dataDir)
	t.Setenv("WEEKPLAN_RULES_FILE", "")

	ctx := context.Background()

	first, err := Build(ctx, noopSink{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := first.Planner.Session().UpdateField(0, "x"); err == nil {
		t.Fatal("expected no fields on a fresh store")
	}
	first.Planner.Session().AddEmptyField()
	if err := first.Planner.Session().UpdateField(0, "persisted task"); err != nil {
		t.Fatalf("update field: %v", err)
	}
	if _, err := first.Planner.SyncFromFields(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	first.DB.Close()

	second, err := Build(ctx, noopSink{})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer second.DB.Close()

	tasks := second.Planner.Tasks()
	if len(tasks) != 1 || tasks[0].Content != "persisted task" {
		t.Fatalf("restored tasks = %v", tasks)
	}
}

func TestBuildFailsOnBrokenRulesFile(t *testing.T) {
	rulesPath := filepath.Join(t.TempDir(), "broken.rules")
	if err := os.WriteFile(rulesPath, []byte("not a rule\n"), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("WEEKPLAN_DATA_DIR", t.TempDir())
	t.Setenv("WEEKPLAN_RULES_FILE", rulesPath)

	if _, err := Build(context.Background(), noopSink{}); err == nil {
		t.Fatal("expected build to fail")
	}
}
