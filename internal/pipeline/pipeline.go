package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fexlab/auviz/internal/config"
	"github.com/fexlab/auviz/internal/faceplot"
	"github.com/fexlab/auviz/internal/ffmpeg"
)

// Pipeline orchestrates the batch AU-video job: enumerate tasks, fan
// them out over a fixed-size worker pool, aggregate the outcomes.
type Pipeline struct {
	logger   zerolog.Logger
	cfg      *config.Config
	renderer TaskRenderer
	workers  int
}

// New creates a pipeline from the application config
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	plotter := faceplot.New(cfg.Render.DPI)
	renderer := NewRenderer(logger, exec, plotter, cfg)

	return &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Str("run_id", uuid.NewString()).Logger(),
		cfg:      cfg,
		renderer: renderer,
		workers:  cfg.Workers,
	}, nil
}

// Run executes the whole batch and returns aggregate stats. Individual
// task failures are logged and counted, they never cancel sibling
// tasks; only an enumeration failure aborts the run.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	tasks, err := EnumerateTasks(p.cfg, p.logger)
	if err != nil {
		return RunStats{}, err
	}

	p.logger.Info().
		Int("tasks", len(tasks)).
		Int("workers", p.workers).
		Msg("starting batch render")

	stats := p.dispatch(ctx, tasks)

	p.logger.Info().
		Int("total", stats.Total).
		Int("rendered", stats.Rendered).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Int("frames_written", stats.FramesWritten).
		Int("frames_failed", stats.FramesFailed).
		Msg("batch render complete")

	return stats, nil
}

type outcome struct {
	result *Result
	err    error
}

// dispatch applies the renderer over the static task list with a pool
// of workers. Completion order is undefined; within a task, frames stay
// in ascending order.
func (p *Pipeline) dispatch(ctx context.Context, tasks []Task) RunStats {
	stats := RunStats{Total: len(tasks)}
	if len(tasks) == 0 {
		return stats
	}

	workers := p.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	jobs := make(chan Task)
	outcomes := make(chan outcome)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for task := range jobs {
				res, err := p.renderer.RenderTask(ctx, task)
				select {
				case outcomes <- outcome{result: res, err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, task := range tasks {
			select {
			case jobs <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		switch {
		case out.err != nil:
			p.logger.Error().Err(out.err).Msg("task failed")
			stats.Failed++
			if out.result != nil {
				stats.FramesFailed += len(out.result.Failed)
			}
		case out.result.Skipped:
			stats.Skipped++
		default:
			stats.Rendered++
			stats.FramesWritten += out.result.FramesWritten
			stats.FramesFailed += len(out.result.Failed)
		}
	}

	return stats
}
