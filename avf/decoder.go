package avf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// NoIndex is the Frame.Index of the only frame of a single-chunk file.
const NoIndex = -1

// Frame is one decoded picture handed to a Sink.
// Pix holds Width*Height RGBA pixels, row major, not premultiplied.
type Frame struct {
	Pix    []byte
	Width  uint16
	Height uint16
	Index  int // chunk index, or NoIndex
}

// Image wraps the frame's pixels without copying.
func (f Frame) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: int(f.Width) * 4,
		Rect:   image.Rect(0, 0, int(f.Width), int(f.Height)),
	}
}

// Sink receives decoded frames. WriteFrame is called from several goroutines
// at once and frames may arrive out of chunk order.
type Sink interface {
	WriteFrame(ctx context.Context, f Frame) error
}

type SinkFunc func(ctx context.Context, f Frame) error

func (fn SinkFunc) WriteFrame(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Result summarizes a decode. Frames counts frames the sink accepted.
type Result struct {
	Header      Header
	Frames      int
	Diagnostics []*ChunkError
}

// Decoder turns AVF files into frames. Frame reconstruction runs in the
// calling goroutine, chunk after chunk; color conversion and sink writes run
// on a fixed pool of workers fed through a bounded queue.
//
// A Decoder reuses a scratch buffer between calls and is not safe for
// concurrent use.
type Decoder struct {
	workers    int
	queueSize  int
	strictSize bool
	logger     *slog.Logger

	scratch []byte
}

type Option func(*Decoder)

// WithWorkers sets how many goroutines convert and write frames.
func WithWorkers(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize bounds the number of reconstructed frames waiting for a worker.
// Decoding blocks while the queue is full.
func WithQueueSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithStrictSize makes a decompressed length that differs from the index
// abort the decode instead of being reported as a diagnostic.
func WithStrictSize(strict bool) Option {
	return func(d *Decoder) { d.strictSize = strict }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.queueSize == 0 {
		d.queueSize = 2 * d.workers
	}
	return d
}

type packedFrame struct {
	chunk int
	index int
	pix   []byte
}

// Decode decodes every chunk of data in playback order and writes the frames to sink.
//
// Header and index errors are returned before anything reaches the sink.
// Opcode and size anomalies are recorded in Result.Diagnostics and decoding
// goes on with the best-effort frame. A sink failure or cancellation of ctx
// stops decoding; frames already written stay written. The returned Result is
// non-nil whenever the header parsed.
func (d *Decoder) Decode(ctx context.Context, data []byte, sink Sink) (*Result, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	h := f.Header
	res := &Result{Header: h}
	if h.BitsPerPixel != 15 && h.BitsPerPixel != 16 {
		d.logger.WarnContext(ctx, "unexpected bits per pixel", "bits_per_pixel", h.BitsPerPixel)
	}
	d.logger.DebugContext(ctx, "header parsed",
		"version", h.Version,
		"revision", h.Revision,
		"width", h.Width,
		"height", h.Height,
		"chunks", h.NumChunks,
		"time_per_frame", h.TimePerFrame,
		"compression_mode", h.CompressionMode)

	g, gctx := errgroup.WithContext(ctx)
	queue := make(chan packedFrame, d.queueSize)
	var written atomic.Int64
	width, height := int(h.Width), int(h.Height)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for job := range queue {
				if gctx.Err() != nil {
					continue
				}
				fr := Frame{Pix: ToRGBA(job.pix, width, height), Width: h.Width, Height: h.Height, Index: job.index}
				if err := sink.WriteFrame(gctx, fr); err != nil {
					return &SinkError{Chunk: job.chunk, Err: err}
				}
				written.Add(1)
			}
			return nil
		})
	}

	decodeErr := d.reconstruct(gctx, f, data, queue, res)
	close(queue)
	waitErr := g.Wait()
	res.Frames = int(written.Load())

	if waitErr != nil {
		return res, waitErr
	}
	if decodeErr != nil {
		if errors.Is(decodeErr, context.Canceled) || errors.Is(decodeErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("avf: decode stopped after %d frames: %w", res.Frames, decodeErr)
		}
		return res, decodeErr
	}
	return res, nil
}

// reconstruct folds over the chunk index carrying the previous packed frame
// and queues each new frame for conversion. Queued frames are never modified.
func (d *Decoder) reconstruct(ctx context.Context, f *File, data []byte, queue chan<- packedFrame, res *Result) error {
	frameSize := f.Header.FrameSize()
	var prev []byte
	for i := range f.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := &f.Chunks[i]

		var cur []byte
		if e.Duplicate() {
			cur = prev
			if cur == nil {
				cur = make([]byte, frameSize)
			}
		} else {
			payload, err := f.Payload(data, i)
			if err != nil {
				return err
			}
			d.scratch = append(d.scratch[:0], payload...)
			Descramble(d.scratch)
			stream := Decompress(d.scratch, decompressHint(e.OriginalSize, len(payload)))
			if len(stream) != int(e.OriginalSize) {
				err := &ChunkError{Chunk: i, Err: fmt.Errorf("%w: got %d bytes, index says %d",
					ErrSizeMismatch, len(stream), e.OriginalSize)}
				if d.strictSize {
					return err
				}
				d.diagnose(ctx, res, err)
			}

			var ref []byte
			if e.Type == ChunkDelta {
				ref = prev
			}
			cur, err = Reconstruct(stream, e.Type, frameSize, ref)
			if err != nil {
				d.diagnose(ctx, res, &ChunkError{Chunk: i, Err: err})
			}
		}
		prev = cur

		index := i
		if !f.Header.Multi() {
			index = NoIndex
		}
		select {
		case queue <- packedFrame{chunk: i, index: index, pix: cur}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// decompressHint bounds the output preallocation by what the payload can
// expand to: a flag byte and eight references give 144 bytes from 17.
func decompressHint(originalSize uint32, stored int) int {
	return int(min(int64(originalSize), int64(stored)*9))
}

func (d *Decoder) diagnose(ctx context.Context, res *Result, err *ChunkError) {
	res.Diagnostics = append(res.Diagnostics, err)
	attrs := []any{"chunk", err.Chunk, "error", err.Err}
	var oe *OpcodeError
	if errors.As(err.Err, &oe) {
		attrs = append(attrs, "opcode", oe.Op, "pos", oe.Pos)
	}
	d.logger.WarnContext(ctx, "chunk decoded with anomalies", attrs...)
}

// Decode decodes data with a default Decoder.
func Decode(ctx context.Context, data []byte, sink Sink) (*Result, error) {
	return NewDecoder().Decode(ctx, data, sink)
}
