package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// readInput loads an AVF file, inflating it first when it is zstd compressed.
func readInput(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if magic, _ := br.Peek(len(zstdMagic)); !bytes.Equal(magic, zstdMagic) {
		return io.ReadAll(br)
	}
	out, err := inflate(br, maxInflatedSize)
	if err != nil {
		return nil, fmt.Errorf("inflate %s: %w", path, err)
	}
	return out, nil
}

// isAVF reports whether a directory entry looks like an AVF file.
func isAVF(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".avf") || strings.HasSuffix(lower, ".avf.zst")
}

// stem is the file name without its directory and extension.
// "clip.avf.zst" and "clip.AVF" both give "clip".
func stem(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".zst") {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
