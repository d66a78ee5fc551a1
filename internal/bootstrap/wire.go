package bootstrap

import (
	"context"
	"database/sql"

	"weekplan/internal/audio"
	"weekplan/internal/config"
	"weekplan/internal/planner"
	"weekplan/internal/ports"
	"weekplan/internal/providers/deepgram"
	"weekplan/internal/registry"
	"weekplan/internal/rules"
	"weekplan/internal/schedule"
	"weekplan/internal/session"
	"weekplan/internal/store"
)

// Services is the assembled runtime graph.
type Services struct {
	Planner *planner.Service
	Config  config.Config
	DB      *sql.DB
}

// Build wires all backend dependencies for the current runtime. The
// persisted fields, tasks and schedule are loaded up front and injected
// into the core constructors; a missing or unreadable store falls back
// to empty state.
func Build(ctx context.Context, eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	db, err := store.Init(cfg.Storage.DataDir)
	if err != nil {
		return Services{}, err
	}

	persistence := store.New(db)
	fields, err := persistence.LoadFields(ctx)
	if err != nil {
		fields = nil
	}
	tasks, err := persistence.LoadTasks(ctx)
	if err != nil {
		tasks = nil
	}
	entries, err := persistence.LoadEntries(ctx)
	if err != nil {
		entries = nil
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		db.Close()
		return Services{}, err
	}

	source := deepgram.NewSource(
		deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		},
		deepgram.StreamConfig{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			Encoding:   "linear16",
			ChunkSize:  cfg.Session.ChunkSize,
		},
		audio.NewMicCapture(cfg.Audio.RecorderCommand),
		ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
	)

	taskRegistry := registry.New(tasks)
	board := schedule.New(taskRegistry, entries)
	captureSession := session.New(source, rulesEngine, eventSink, fields, session.Config{
		CountdownTicks: cfg.Session.CountdownTicks,
		TickInterval:   cfg.Session.TickInterval,
	})

	return Services{
		Planner: planner.New(captureSession, taskRegistry, board, persistence),
		Config:  cfg,
		DB:      db,
	}, nil
}
