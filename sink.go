package main

import (
	"bufio"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/svanichkin/avfrip/avf"
	"github.com/xfmoulet/qoi"
)

var formatExt = map[string]string{
	"png": "png",
	"qoi": "qoi",
	"raw": "rgba.zst",
}

// fileSink writes each frame to its own image file.
//
// A single-frame file becomes <dir>/<stem>.<ext>. Frames of a multi-frame
// file go to <dir>/<stem>/<stem>_<index>.<ext>.
type fileSink struct {
	dir    string
	stem   string
	format string
	saved  atomic.Int64
}

func newFileSink(dir, stem, format string) (*fileSink, error) {
	if _, ok := formatExt[format]; !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &fileSink{dir: dir, stem: stem, format: format}, nil
}

func (s *fileSink) path(index int) string {
	ext := formatExt[s.format]
	if index == avf.NoIndex {
		return filepath.Join(s.dir, s.stem+"."+ext)
	}
	return filepath.Join(s.dir, s.stem, fmt.Sprintf("%s_%d.%s", s.stem, index, ext))
}

func (s *fileSink) WriteFrame(ctx context.Context, f avf.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(f.Index)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	if err := encodeFrame(w, f, s.format); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	s.saved.Add(1)
	return nil
}

// Saved is the number of files written so far.
func (s *fileSink) Saved() int64 { return s.saved.Load() }

func encodeFrame(w io.Writer, f avf.Frame, format string) error {
	switch format {
	case "png":
		return png.Encode(w, f.Image())
	case "qoi":
		return qoi.Encode(w, f.Image())
	case "raw":
		return writeRaw(w, f.Pix)
	}
	return fmt.Errorf("unsupported format %q", format)
}
