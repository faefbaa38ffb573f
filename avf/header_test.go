package avf

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	data := testFile{width: 4, height: 3, chunks: []testChunk{
		{typ: ChunkRaw, stream: make([]byte, 24)},
		{typ: ChunkDelta, stream: opFillBytes(0x1F, 0x00, 0, 1)},
		{dup: true},
	}}.bytes()

	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h := f.Header
	if h.ID != Magic {
		t.Fatalf("ID: got %q want %q", h.ID, Magic)
	}
	if h.Width != 4 || h.Height != 3 {
		t.Fatalf("dimensions: got %dx%d want 4x3", h.Width, h.Height)
	}
	if h.Version != 1 || h.BitsPerPixel != 15 || h.TimePerFrame != 66 {
		t.Fatalf("header fields: got %+v", h)
	}
	if got, want := len(f.Chunks), int(h.NumChunks); got != want {
		t.Fatalf("chunks: got %d want %d", got, want)
	}
	if got := f.Chunks[1].Type; got != ChunkDelta {
		t.Fatalf("chunk 1 type: got %v want %v", got, ChunkDelta)
	}
	if !f.Chunks[2].Duplicate() || f.Chunks[1].Duplicate() {
		t.Fatalf("duplicate flags wrong: %+v", f.Chunks)
	}
	if got := h.FrameSize(); got != 24 {
		t.Fatalf("FrameSize: got %d want 24", got)
	}

	p, err := f.Payload(data, 0)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if got, want := len(p), int(f.Chunks[0].StorageSize); got != want {
		t.Fatalf("payload length: got %d want %d", got, want)
	}
}

func TestParseHeader_Errors(t *testing.T) {
	valid := testFile{width: 1, height: 1, chunks: []testChunk{{typ: ChunkRaw, stream: []byte{1, 2}}}}.bytes()

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "AVF WayneSikez")

	negative := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(negative[0x15:], 0xFFFF)

	for _, tc := range []struct {
		name  string
		data  []byte
		kind  error
		field string
	}{
		{name: "empty", data: nil, kind: ErrTruncatedHeader, field: "header"},
		{name: "short", data: valid[:HeaderSize-1], kind: ErrTruncatedHeader, field: "header"},
		{name: "magic", data: badMagic, kind: ErrInvalidFormat, field: "magic"},
		{name: "negative_chunks", data: negative, kind: ErrInvalidFormat, field: "num_chunks"},
		{name: "short_index", data: valid[:HeaderSize+EntrySize-1], kind: ErrTruncatedIndex, field: "chunk index"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.data)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("got %v want %v", err, tc.kind)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not a *FormatError", err)
			}
			if fe.Field != tc.field {
				t.Fatalf("field: got %q want %q", fe.Field, tc.field)
			}
		})
	}
}

func TestParseHeader_MagicPaddingIgnored(t *testing.T) {
	data := testFile{width: 1, height: 1}.bytes()
	data[0x0F] = 0x7A
	if _, err := ParseHeader(data); err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
}

func TestPayload_PastEnd(t *testing.T) {
	data := testFile{width: 1, height: 1, chunks: []testChunk{{typ: ChunkRaw, stream: []byte{1, 2}}}}.bytes()
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = f.Payload(data[:len(data)-1], 0)
	if !errors.Is(err, ErrTruncatedChunk) {
		t.Fatalf("got %v want %v", err, ErrTruncatedChunk)
	}
}
