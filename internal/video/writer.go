package video

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"strings"

	"github.com/kovidgoyal/imaging"

	"github.com/sierracams/snowlapse/internal/errors"
)

// pipeJPEGQuality is the quality of the intermediate JPEG stream. The final
// compression happens in libx264, so this only needs to avoid visible
// generation loss.
const pipeJPEGQuality = 95

// Preflight reports whether ffmpeg is available on PATH.
func Preflight() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return errors.NewCommandStartError("ffmpeg", err)
	}
	return nil
}

// Writer streams frames into a single ffmpeg process. Frames that do not
// match the writer's dimensions are resized before encoding.
type Writer struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	params EncodeParams
	frames int
}

// NewWriter starts an ffmpeg process that encodes piped JPEG frames into
// params.OutputPath.
func NewWriter(ctx context.Context, params EncodeParams) (*Writer, error) {
	w := &Writer{ctx: ctx, params: params}

	w.cmd = exec.CommandContext(ctx, "ffmpeg", BuildArgs(params)...)
	w.cmd.Stderr = &w.stderr

	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		return nil, errors.NewFFmpegError("opening ffmpeg stdin pipe", err)
	}
	w.stdin = stdin

	if err := w.cmd.Start(); err != nil {
		return nil, errors.NewCommandStartError("ffmpeg", err)
	}
	return w, nil
}

// WriteFrame encodes img into the stream.
func (w *Writer) WriteFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != w.params.Width || b.Dy() != w.params.Height {
		img = imaging.Resize(img, w.params.Width, w.params.Height, imaging.Lanczos)
	}
	if err := jpeg.Encode(w.stdin, img, &jpeg.Options{Quality: pipeJPEGQuality}); err != nil {
		return errors.NewFFmpegError("writing frame to ffmpeg", err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}

// Close ends the frame stream and waits for ffmpeg to finalize the output.
func (w *Writer) Close() error {
	w.stdin.Close()

	if err := w.cmd.Wait(); err != nil {
		if w.ctx.Err() != nil {
			return errors.NewCancelledError()
		}
		return errors.WrapExecError("ffmpeg", err, strings.TrimSpace(w.stderr.String()))
	}
	return nil
}
