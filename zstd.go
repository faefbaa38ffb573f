package main

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// maxInflatedSize caps what a zstd wrapped input may expand to.
const maxInflatedSize = 1 << 30

var errInflatedTooLarge = errors.New("inflated input exceeds size limit")

// inflate streams a zstd input into memory, failing once it passes limit bytes.
func inflate(r io.Reader, limit int64) ([]byte, error) {
	dec, err := zstd.NewReader(r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(uint64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := io.ReadAll(io.LimitReader(dec, limit+1))
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, fmt.Errorf("%w: %v", errInflatedTooLarge, err)
	}
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, errInflatedTooLarge
	}
	return out, nil
}

// rawEncoders hold encoders for the raw output format; each is reset onto the
// file it writes.
var rawEncoders = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

// writeRaw writes pix to w as one zstd stream.
func writeRaw(w io.Writer, pix []byte) error {
	enc := rawEncoders.Get().(*zstd.Encoder)
	defer rawEncoders.Put(enc)
	enc.Reset(w)
	if _, err := enc.Write(pix); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
