package avf

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"
)

// scramble is the forward transform undone by Descramble.
func scramble(p []byte) []byte {
	out := make([]byte, len(p))
	for n, b := range p {
		out[n] = b + byte(n)
	}
	return out
}

// compress is a greedy reference encoder for the container's LZSS variant.
// It searches the whole ring for the longest match, replaying overlapping
// copies the way the decoder does.
func compress(src []byte) []byte {
	var dict [dictSize]byte
	var out []byte
	w := dictStart
	pos := 0
	for pos < len(src) {
		flagAt := len(out)
		out = append(out, 0)
		for bit := 0; bit < 8 && pos < len(src); bit++ {
			bestLen, bestOff := 0, 0
			for o := 0; o < dictSize; o++ {
				if n := matchLen(&dict, w, o, src[pos:]); n > bestLen {
					bestLen, bestOff = n, o
					if n == maxMatch {
						break
					}
				}
			}
			if bestLen < minMatch {
				out[flagAt] |= 1 << bit
				out = append(out, src[pos])
				dict[w] = src[pos]
				w = (w + 1) & dictMask
				pos++
				continue
			}
			out = append(out, byte(bestOff), byte(bestOff>>4&0xF0)|byte(bestLen-minMatch))
			for k := 0; k < bestLen; k++ {
				dict[w] = src[pos+k]
				w = (w + 1) & dictMask
			}
			pos += bestLen
		}
	}
	return out
}

// matchLen is how many bytes of want a copy from ring offset o would
// reproduce, accounting for bytes the copy itself writes at w.
func matchLen(dict *[dictSize]byte, w, o int, want []byte) int {
	var written [maxMatch]byte
	n := 0
	for n < maxMatch && n < len(want) {
		p := (o + n) & dictMask
		var b byte
		if j := (p - w) & dictMask; j < n {
			b = written[j]
		} else {
			b = dict[p]
		}
		if b != want[n] {
			break
		}
		written[n] = b
		n++
	}
	return n
}

// literals encodes src with literal items only.
func literals(src []byte) []byte {
	var out []byte
	for i := 0; i < len(src); i += 8 {
		end := min(i+8, len(src))
		out = append(out, byte(1<<(end-i)-1))
		out = append(out, src[i:end]...)
	}
	return out
}

type testChunk struct {
	typ    ChunkType
	stream []byte // decompressed stream; nil with dup marks a duplicate
	dup    bool
	// overrides
	originalSize *uint32
	payload      []byte // stored bytes before scrambling; defaults to compress(stream)
}

type testFile struct {
	width, height uint16
	bpp           uint8
	chunks        []testChunk
}

func (tf testFile) bytes() []byte {
	le := binary.LittleEndian
	n := len(tf.chunks)
	buf := make([]byte, HeaderSize+n*EntrySize)
	copy(buf, Magic)
	le.PutUint16(buf[0x10:], 1)
	le.PutUint16(buf[0x12:], 0)
	le.PutUint16(buf[0x15:], uint16(n))
	le.PutUint16(buf[0x17:], tf.width)
	le.PutUint16(buf[0x19:], tf.height)
	bpp := tf.bpp
	if bpp == 0 {
		bpp = 15
	}
	buf[0x1b] = bpp
	le.PutUint32(buf[0x1c:], 66)

	for i, c := range tf.chunks {
		p := HeaderSize + i*EntrySize
		buf[p+0x0e] = byte(c.typ)
		le.PutUint32(buf[p+0x0f:], 0)
		if c.dup {
			continue
		}
		stored := c.payload
		if stored == nil {
			stored = compress(c.stream)
		}
		orig := uint32(len(c.stream))
		if c.originalSize != nil {
			orig = *c.originalSize
		}
		le.PutUint32(buf[p+0x02:], uint32(len(buf)))
		le.PutUint32(buf[p+0x06:], uint32(len(stored)))
		le.PutUint32(buf[p+0x0a:], orig)
		buf = append(buf, scramble(stored)...)
	}
	return buf
}

// memSink collects frames in memory.
type memSink struct {
	mu     sync.Mutex
	frames []Frame
	fail   func(Frame) error
}

func (s *memSink) WriteFrame(ctx context.Context, f Frame) error {
	if s.fail != nil {
		if err := s.fail(f); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

// sorted returns the collected frames in chunk order.
func (s *memSink) sorted() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Frame(nil), s.frames...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// opcode stream builders

func opCopyBytes(dstPixels uint32, data []byte) []byte {
	b := []byte{opCopy}
	b = binary.LittleEndian.AppendUint32(b, dstPixels)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(data)/2))
	return append(b, data...)
}

func opFillBytes(hi, lo byte, dstPixels, count uint32) []byte {
	b := []byte{opFill, hi, lo}
	b = binary.LittleEndian.AppendUint32(b, dstPixels)
	return binary.LittleEndian.AppendUint32(b, count)
}

func u32p(v uint32) *uint32 { return &v }
