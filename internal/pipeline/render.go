package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/fexlab/auviz/internal/config"
	"github.com/fexlab/auviz/internal/faceplot"
	"github.com/fexlab/auviz/internal/feat"
	"github.com/fexlab/auviz/internal/ffmpeg"
	"github.com/fexlab/auviz/pkg/util"
)

// TaskRenderer turns one task into one output video
type TaskRenderer interface {
	RenderTask(ctx context.Context, task Task) (*Result, error)
}

// Renderer is the production TaskRenderer: AU table in, heatmap MP4 out.
type Renderer struct {
	logger  zerolog.Logger
	ffmpeg  *ffmpeg.Executor
	plotter *faceplot.Plotter

	fps             float64
	crf             int
	preset          string
	maxFailureRatio float64
}

// NewRenderer creates a per-task renderer
func NewRenderer(logger zerolog.Logger, exec *ffmpeg.Executor, plotter *faceplot.Plotter, cfg *config.Config) *Renderer {
	return &Renderer{
		logger:          logger.With().Str("component", "renderer").Logger(),
		ffmpeg:          exec,
		plotter:         plotter,
		fps:             cfg.Render.FPS,
		crf:             cfg.FFmpeg.CRF,
		preset:          cfg.FFmpeg.Preset,
		maxFailureRatio: cfg.Render.MaxFailureRatio,
	}
}

// RenderTask renders one AU video. An already-existing output file is a
// skip, not an error. Per-frame plot value errors are tolerated and
// recorded; a CSV load failure or any encoder failure fails the task.
func (r *Renderer) RenderTask(ctx context.Context, task Task) (*Result, error) {
	if util.FileExists(task.VideoPath) {
		r.logger.Info().Str("video", task.VideoPath).Msg("already processed, skipping")
		return &Result{Task: task, Skipped: true}, nil
	}

	table, err := feat.ReadTable(task.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", task.CSVPath, err)
	}

	r.logger.Info().
		Str("csv", task.CSVPath).
		Int("frames", table.Frames()).
		Msg("loaded AU table, generating frames")

	res := &Result{Task: task, TotalFrames: table.Frames()}

	// Render every frame before touching the output file, in ascending
	// frame order. Bad frames are dropped, the rest keep their order.
	figs := make([]*image.RGBA, 0, table.Frames())
	for frame := 0; frame < table.Frames(); frame++ {
		aus, err := table.AUs(frame)
		if err != nil {
			return nil, err
		}

		fig, err := r.plotter.Plot(aus, fmt.Sprintf("Frame %d", frame))
		if err != nil {
			if errors.Is(err, faceplot.ErrBadValue) {
				r.logger.Warn().
					Str("csv", task.CSVPath).
					Int("frame", frame).
					Err(err).
					Msg("frame failed to plot")
				res.Failed = append(res.Failed, FrameError{Frame: frame, Reason: err.Error()})
				continue
			}
			return nil, fmt.Errorf("plot failed at frame %d: %w", frame, err)
		}
		figs = append(figs, fig)
	}

	if res.TotalFrames > 0 {
		ratio := float64(len(res.Failed)) / float64(res.TotalFrames)
		if ratio > r.maxFailureRatio {
			return res, fmt.Errorf("%d of %d frames failed to plot (ratio %.2f exceeds %.2f)",
				len(res.Failed), res.TotalFrames, ratio, r.maxFailureRatio)
		}
	}

	width, height := r.plotter.Size()
	writer, err := r.ffmpeg.NewVideoWriter(ffmpeg.WriterOptions{
		Output: task.VideoPath,
		FPS:    r.fps,
		Width:  width,
		Height: height,
		CRF:    r.crf,
		Preset: r.preset,
	})
	if err != nil {
		return res, err
	}
	// backstop so every early return reaps the encoder; no-op once
	// Close has run
	defer writer.Abort()

	for i, fig := range figs {
		if err := writer.Append(ctx, fig); err != nil {
			writer.Abort()
			util.CleanupFiles(task.VideoPath)
			return res, err
		}
		figs[i] = nil // release the frame buffer once encoded
	}

	if err := writer.Close(ctx); err != nil {
		util.CleanupFiles(task.VideoPath)
		return res, err
	}

	res.FramesWritten = writer.Frames()

	r.logger.Info().
		Str("video", task.VideoPath).
		Int("frames", res.FramesWritten).
		Int("failed_frames", len(res.Failed)).
		Msg("video saved")

	return res, nil
}
