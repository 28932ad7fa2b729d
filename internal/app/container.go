// Package app provides the dependency injection container for decree.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/runoshun/decree/internal/daemon"
	"github.com/runoshun/decree/internal/domain"
	"github.com/runoshun/decree/internal/infra/checkpoint"
	"github.com/runoshun/decree/internal/infra/config"
	"github.com/runoshun/decree/internal/infra/logging"
	"github.com/runoshun/decree/internal/infra/messagestore"
	"github.com/runoshun/decree/internal/infra/routerai"
	"github.com/runoshun/decree/internal/infra/routine"
	"github.com/runoshun/decree/internal/infra/routinestore"
	"github.com/runoshun/decree/internal/infra/walker"
	"github.com/runoshun/decree/internal/usecase"
)

// Paths holds the directories a decree project is rooted at.
type Paths struct {
	RepoRoot   string
	RuntimeDir string
}

// Container wires every port implementation and provides factory methods
// for use cases, matching the teacher's app.Container shape.
type Container struct {
	Checkpoint   domain.CheckpointEngine
	Messages     domain.MessageStore
	Routines     domain.RoutineStore
	Router       domain.RouterAI
	Executor     domain.RoutineExecutor
	ConfigLoader domain.ConfigLoader
	Clock        domain.Clock
	Logger       domain.Logger
	Minter       *domain.ChainMinter

	Config *domain.Config
	Paths  Paths
}

// New detects a decree project rooted at dir and wires a Container against
// it. dir is taken as the repo root directly: decree has no ancestor-walk
// the way the teacher's git-detection does, since `.decree/` is always
// created alongside the invocation directory by `decree init`. New fails
// with domain.ErrNotAProject when dir has no `.decree/` yet; the `init`
// command itself uses NewWithoutProject to bypass this check.
func New(dir string) (*Container, error) {
	runtimeDir := domain.RepoRuntimeDir(dir)
	if _, err := os.Stat(runtimeDir); err != nil {
		return nil, domain.ErrNotAProject
	}
	return newContainer(dir, runtimeDir)
}

// NewWithoutProject wires a Container for a dir that may not yet be an
// initialized decree project, for use by the `init` command and any
// command that can run standalone (mirroring the teacher's
// PersistentPreRunE skip for cmd.Name() == "init").
func NewWithoutProject(dir string) (*Container, error) {
	return newContainer(dir, domain.RepoRuntimeDir(dir))
}

func newContainer(repoRoot, runtimeDir string) (*Container, error) {
	configLoader := config.New(runtimeDir)
	cfg, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(runtimeDir, logging.ParseLevel(cfg.Log.Level))

	w := walker.New()
	checkpointEngine := checkpoint.New(w, domain.ObjectsDir(runtimeDir))
	messages := messagestore.New(runtimeDir)
	routines := routinestore.New(domain.RoutinesDir(runtimeDir), cfg.NotebookSupport)
	executor := routine.New(repoRoot, cfg.NotebookRunner)
	clock := domain.RealClock{}
	minter := domain.NewChainMinter(clock)

	var router domain.RouterAI
	if cfg.Commands.Router != "" {
		router = routerai.New(cfg.Commands.Router)
	}

	return &Container{
		Checkpoint:   checkpointEngine,
		Messages:     messages,
		Routines:     routines,
		Router:       router,
		Executor:     executor,
		ConfigLoader: configLoader,
		Clock:        clock,
		Logger:       logger,
		Minter:       minter,
		Config:       cfg,
		Paths:        Paths{RepoRoot: repoRoot, RuntimeDir: runtimeDir},
	}, nil
}

// StderrLogger is a fallback used before a Container can be built (e.g.
// `decree init` itself), matching the teacher's pre-container slog setup.
func StderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// InitProjectUseCase returns an InitProject use case.
func (c *Container) InitProjectUseCase() *usecase.InitProject {
	return usecase.NewInitProject(c.Paths.RepoRoot)
}

// NormalizeMessageUseCase returns a NormalizeMessage use case.
func (c *Container) NormalizeMessageUseCase() *usecase.NormalizeMessage {
	return usecase.NewNormalizeMessage(c.Routines, c.Router, c.Minter, c.Messages, c.Config)
}

// ProcessMessageUseCase returns a ProcessMessage use case.
func (c *Container) ProcessMessageUseCase() *usecase.ProcessMessage {
	return usecase.NewProcessMessage(
		c.NormalizeMessageUseCase(),
		c.Checkpoint,
		c.Executor,
		c.Routines,
		c.Messages,
		c.Logger,
		c.Paths.RepoRoot,
		c.Paths.RuntimeDir,
		c.Config.MaxRetries,
	)
}

// RunPipelineUseCase returns a RunPipeline use case.
func (c *Container) RunPipelineUseCase() *usecase.RunPipeline {
	return usecase.NewRunPipeline(c.ProcessMessageUseCase(), c.Messages, c.Config.MaxDepth)
}

// BatchProcessUseCase returns a BatchProcess use case.
func (c *Container) BatchProcessUseCase() *usecase.BatchProcess {
	return usecase.NewBatchProcess(c.RunPipelineUseCase(), c.Messages, c.Minter, c.Paths.RepoRoot)
}

// DiffRangeUseCase returns a DiffRange use case.
func (c *Container) DiffRangeUseCase() *usecase.DiffRange {
	return usecase.NewDiffRange(c.Paths.RuntimeDir)
}

// ApplyRangeUseCase returns an ApplyRange use case.
func (c *Container) ApplyRangeUseCase() *usecase.ApplyRange {
	return usecase.NewApplyRange(c.Checkpoint, c.Paths.RepoRoot, c.Paths.RuntimeDir)
}

// Daemon returns a daemon.Daemon polling every interval.
func (c *Container) Daemon(intervalSeconds int) *daemon.Daemon {
	return daemon.New(c.RunPipelineUseCase(), c.Messages, c.Minter, c.Clock, c.Logger, time.Duration(intervalSeconds)*time.Second)
}
