package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

// VideoWriter encodes a stream of in-memory frames into an MP4 file by
// piping raw RGBA data over ffmpeg's stdin. Frames are appended in call
// order and encoded at a fixed frame rate.
//
// ffmpeg is started lazily on the first Append so the frame size can be
// taken from the first image when WriterOptions leaves it unset. Closing
// a writer that never received a frame still produces a valid zero-frame
// MP4 container.
type VideoWriter struct {
	exec   *Executor
	logger zerolog.Logger
	opts   WriterOptions

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	width  int
	height int
	frames int
	closed bool
}

// NewVideoWriter creates a writer for the given output path
func (e *Executor) NewVideoWriter(opts WriterOptions) (*VideoWriter, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.CRF == 0 {
		opts.CRF = DefaultCRF
	}
	if opts.Preset == "" {
		opts.Preset = DefaultPreset
	}
	// yuv420p needs even dimensions
	opts.Width = opts.Width &^ 1
	opts.Height = opts.Height &^ 1

	return &VideoWriter{
		exec:   e,
		logger: e.logger.With().Str("output", opts.Output).Logger(),
		opts:   opts,
	}, nil
}

// Append adds one frame to the video. The first frame starts the encoder
// and, if WriterOptions did not pin a size, fixes the frame dimensions;
// later frames with a different size are rescaled to match.
func (w *VideoWriter) Append(ctx context.Context, img image.Image) error {
	if w.closed {
		return fmt.Errorf("writer already closed")
	}

	if w.cmd == nil {
		width, height := w.opts.Width, w.opts.Height
		if width == 0 || height == 0 {
			b := img.Bounds()
			width = b.Dx() &^ 1
			height = b.Dy() &^ 1
		}
		if width <= 0 || height <= 0 {
			return fmt.Errorf("frame too small to encode: %v", img.Bounds())
		}
		if err := w.start(ctx, width, height); err != nil {
			return err
		}
	}

	b := img.Bounds()
	if b.Dx() != w.width || b.Dy() != w.height {
		img = resize.Resize(uint(w.width), uint(w.height), img, resize.Bilinear)
	}

	frame := toRGBA(img)
	if _, err := w.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("failed to append frame %d: %w%s", w.frames, err, w.stderrTail())
	}

	w.frames++
	return nil
}

// Frames returns the number of frames appended so far
func (w *VideoWriter) Frames() int {
	return w.frames
}

// Close finalizes the video file. The writer is unusable afterwards.
// The ffmpeg process is reaped whether or not finalizing succeeds.
func (w *VideoWriter) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.cmd == nil {
		return w.writeEmpty(ctx)
	}

	if err := w.stdin.Close(); err != nil {
		// without EOF on its pipe the encoder never exits; kill and
		// reap it rather than leave it behind
		_ = w.cmd.Process.Kill()
		_ = w.cmd.Wait()
		return fmt.Errorf("failed to close ffmpeg stdin: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg finalize failed: %w%s", err, w.stderrTail())
	}

	w.logger.Debug().Int("frames", w.frames).Msg("video finalized")
	return nil
}

// Abort discards an in-progress encode, killing and reaping the ffmpeg
// process without finalizing the output file. It is a no-op after a
// Close or a previous Abort, so callers can defer it as a backstop for
// early error returns.
func (w *VideoWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true

	if w.cmd == nil {
		return
	}

	_ = w.stdin.Close()
	_ = w.cmd.Process.Kill()
	_ = w.cmd.Wait()
	w.logger.Debug().Int("frames", w.frames).Msg("encode aborted")
}

func (w *VideoWriter) start(ctx context.Context, width, height int) error {
	w.width = width
	w.height = height

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", strconv.FormatFloat(w.opts.FPS, 'g', -1, 64),
		"-i", "pipe:0",
	}

	if w.exec.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(w.exec.threads))
	}

	vf := NewFilterBuilder().Custom("format=yuv420p").Build()
	args = append(args,
		"-an",
		"-vf", vf,
		"-c:v", DefaultVideoCodec,
		"-preset", w.opts.Preset,
		"-crf", strconv.Itoa(w.opts.CRF),
		"-movflags", "+faststart",
		w.opts.Output,
	)

	w.logger.Debug().Strs("args", args).Msg("starting frame encoder")

	cmd := exec.CommandContext(ctx, w.exec.ffmpegPath, args...)
	cmd.Stderr = &w.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	w.cmd = cmd
	w.stdin = stdin
	return nil
}

// writeEmpty produces a zero-frame MP4 container so a task whose every
// frame failed still leaves an openable output file behind.
func (w *VideoWriter) writeEmpty(ctx context.Context) error {
	width, height := w.opts.Width, w.opts.Height
	if width <= 0 || height <= 0 {
		width, height = 2, 2
	}

	args := []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=white:s=%dx%d:r=%s",
			width, height, strconv.FormatFloat(w.opts.FPS, 'g', -1, 64)),
		"-frames:v", "0",
		"-c:v", DefaultVideoCodec,
		"-pix_fmt", "yuv420p",
		w.opts.Output,
	}

	err := w.exec.Run(ctx, RunOptions{
		Args: args,
		LogHandler: func(line string) {
			w.logger.Debug().Str("ffmpeg", line).Msg("empty container")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write empty container: %w", err)
	}

	w.logger.Debug().Msg("wrote zero-frame container")
	return nil
}

func (w *VideoWriter) stderrTail() string {
	s := strings.TrimSpace(w.stderr.String())
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return "\nffmpeg: " + strings.Join(lines, "\nffmpeg: ")
}

// toRGBA returns img as a tightly packed RGBA image suitable for
// rawvideo piping (zero origin, stride == 4*width).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		b := rgba.Bounds()
		if b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
			return rgba
		}
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
