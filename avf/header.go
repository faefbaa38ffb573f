// Package avf decodes AVF chunked animation containers into RGBA frames.
//
// A file is a fixed header, a table of chunk index records, and one
// scrambled, LZSS-compressed payload per chunk. Each payload expands to
// either a raw 15-bit frame or an opcode stream patching a blank canvas or
// the previous frame.
package avf

import (
	"fmt"
	"strconv"
)

const (
	// Magic is the file identifier stored in the first 15 bytes of the header.
	Magic = "AVF WayneSikes\x00"

	HeaderSize = 0x21
	EntrySize  = 0x13
)

// ChunkType selects how a chunk's decompressed stream becomes a frame.
type ChunkType uint8

const (
	ChunkRaw   ChunkType = 0 // stream is the frame
	ChunkKey   ChunkType = 1 // opcodes applied to a blank canvas
	ChunkDelta ChunkType = 2 // opcodes applied to the previous frame
)

func (t ChunkType) String() string {
	switch t {
	case ChunkRaw:
		return "raw"
	case ChunkKey:
		return "key"
	case ChunkDelta:
		return "delta"
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

type Header struct {
	ID              string
	Version         uint16
	Revision        uint16
	ChunkType       uint8
	NumChunks       int16
	Width           uint16 // stored signed, used as an unsigned extent
	Height          uint16
	BitsPerPixel    uint8
	TimePerFrame    uint32
	CompressionMode uint8
}

// Multi reports whether the file holds more than one frame.
func (h *Header) Multi() bool { return h.NumChunks > 1 }

// FrameSize is the byte length of one packed 15-bit frame.
func (h *Header) FrameSize() int { return int(h.Width) * int(h.Height) * 2 }

type ChunkEntry struct {
	InfoBlockOffset uint16
	FileOffset      uint32
	StorageSize     uint32
	OriginalSize    uint32 // 0 together with StorageSize 0 marks a repeat of the previous frame
	Type            ChunkType
	ParentKeyFrame  uint32 // informational; deltas always apply to the previous frame
}

// Duplicate reports whether the chunk repeats the previous frame.
func (e *ChunkEntry) Duplicate() bool {
	return e.OriginalSize == 0 && e.StorageSize == 0
}

// File is a parsed header and chunk index.
type File struct {
	Header Header
	Chunks []ChunkEntry
}

// Parse reads the header and the chunk index of an AVF file.
func Parse(data []byte) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	chunks, err := ReadIndex(data, int(h.NumChunks))
	if err != nil {
		return nil, err
	}
	return &File{Header: h, Chunks: chunks}, nil
}

func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &FormatError{Kind: ErrTruncatedHeader, Field: "header", Want: HeaderSize, Got: len(data)}
	}
	id := string(data[:len(Magic)])
	if id != Magic {
		return Header{}, &FormatError{Kind: ErrInvalidFormat, Field: "magic", Want: strconv.Quote(Magic), Got: strconv.Quote(id)}
	}
	h := Header{
		ID:              id,
		Version:         le16(data, 0x10),
		Revision:        le16(data, 0x12),
		ChunkType:       data[0x14],
		NumChunks:       int16(le16(data, 0x15)),
		Width:           le16(data, 0x17),
		Height:          le16(data, 0x19),
		BitsPerPixel:    data[0x1b],
		TimePerFrame:    le32(data, 0x1c),
		CompressionMode: data[0x20],
	}
	if h.NumChunks < 0 {
		return Header{}, &FormatError{Kind: ErrInvalidFormat, Field: "num_chunks", Offset: 0x15, Want: ">= 0", Got: h.NumChunks}
	}
	return h, nil
}

// ReadIndex reads n chunk index records following the header, in playback order.
func ReadIndex(data []byte, n int) ([]ChunkEntry, error) {
	if n < 0 {
		return nil, &FormatError{Kind: ErrInvalidFormat, Field: "num_chunks", Offset: 0x15, Want: ">= 0", Got: n}
	}
	if !has(data, HeaderSize, n*EntrySize) {
		return nil, &FormatError{Kind: ErrTruncatedIndex, Field: "chunk index", Offset: HeaderSize,
			Want: HeaderSize + n*EntrySize, Got: len(data)}
	}
	chunks := make([]ChunkEntry, n)
	for i := range chunks {
		p := HeaderSize + i*EntrySize
		chunks[i] = ChunkEntry{
			InfoBlockOffset: le16(data, p),
			FileOffset:      le32(data, p+0x02),
			StorageSize:     le32(data, p+0x06),
			OriginalSize:    le32(data, p+0x0a),
			Type:            ChunkType(data[p+0x0e]),
			ParentKeyFrame:  le32(data, p+0x0f),
		}
	}
	return chunks, nil
}

// Payload returns the compressed bytes of chunk i as a subslice of data.
func (f *File) Payload(data []byte, i int) ([]byte, error) {
	if i < 0 || i >= len(f.Chunks) {
		return nil, fmt.Errorf("avf: chunk %d out of range [0,%d)", i, len(f.Chunks))
	}
	e := &f.Chunks[i]
	off, n := int64(e.FileOffset), int64(e.StorageSize)
	if off+n > int64(len(data)) {
		return nil, &FormatError{Kind: ErrTruncatedChunk, Field: fmt.Sprintf("chunk %d payload", i),
			Offset: HeaderSize + i*EntrySize + 0x02, Want: off + n, Got: len(data)}
	}
	return data[off : off+n], nil
}
