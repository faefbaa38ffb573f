package avf

import (
	"errors"
	"fmt"
)

// Frame opcodes. Offsets and counts in operands are in pixels and are
// doubled to address the byte buffer.
const (
	opCopy  = 0x20 // dst u32, count u32, then count pixels of data
	opFill  = 0x40 // hi, lo, dst u32, count u32
	opGroup = 0x80 // group size u8, repeats u32
)

// Reconstruct builds a packed 15-bit frame from a decompressed chunk stream.
//
// Raw chunks are the frame already and are returned as is. Key chunks are
// applied to a zeroed frame of frameSize bytes, delta chunks to a copy of ref.
// Interpretation stops at the first unknown or malformed opcode and the frame
// written so far is returned. The error joins every diagnostic met along the
// way; the frame is usable either way.
func Reconstruct(stream []byte, typ ChunkType, frameSize int, ref []byte) ([]byte, error) {
	if typ == ChunkRaw {
		return stream, nil
	}
	frame := make([]byte, frameSize)
	if typ == ChunkDelta {
		copy(frame, ref)
	}

	var diags []error
	pos := 0
	for pos < len(stream) {
		var next int
		var err error
		switch op := stream[pos]; op {
		case opCopy:
			next, err = blockCopy(frame, stream, pos)
		case opFill:
			next, err = patternFill(frame, stream, pos)
		case opGroup:
			next, err = pixelGroup(frame, stream, pos)
		default:
			next, err = pos, &OpcodeError{Op: op, Pos: pos, Err: ErrUnknownOpcode}
		}
		if err != nil {
			diags = append(diags, err)
			if !errors.Is(err, ErrIncompleteOpcode) {
				break
			}
		}
		if next <= pos {
			break
		}
		pos = next
	}
	return frame, errors.Join(diags...)
}

func blockCopy(frame, s []byte, pos int) (int, error) {
	if !has(s, pos+1, 8) {
		return pos, &OpcodeError{Op: opCopy, Pos: pos, Err: ErrTruncatedOperand}
	}
	dst := 2 * int(le32(s, pos+1))
	n := 2 * int(le32(s, pos+5))
	src := pos + 9
	if !has(s, src, n) {
		return pos, &OpcodeError{Op: opCopy, Pos: pos, Err: ErrTruncatedOperand,
			Detail: fmt.Sprintf("%d data bytes, %d left", n, len(s)-src)}
	}
	if !has(frame, dst, n) {
		return pos, &OpcodeError{Op: opCopy, Pos: pos, Err: ErrOutOfFrame,
			Detail: fmt.Sprintf("bytes [%d,%d) of %d", dst, dst+n, len(frame))}
	}
	copy(frame[dst:dst+n], s[src:src+n])
	return src + n, nil
}

func patternFill(frame, s []byte, pos int) (int, error) {
	if !has(s, pos+1, 10) {
		return pos, &OpcodeError{Op: opFill, Pos: pos, Err: ErrTruncatedOperand}
	}
	hi, lo := s[pos+1], s[pos+2]
	dst := 2 * int(le32(s, pos+3))
	n := 2 * int(le32(s, pos+7))
	if !has(frame, dst, n) {
		return pos, &OpcodeError{Op: opFill, Pos: pos, Err: ErrOutOfFrame,
			Detail: fmt.Sprintf("bytes [%d,%d) of %d", dst, dst+n, len(frame))}
	}
	for x := dst; x < dst+n; x += 2 {
		frame[x] = hi
		frame[x+1] = lo
	}
	return pos + 11, nil
}

// pixelGroup replays the repeated pixel group opcode exactly as it has been
// observed: for each repeat it clears one group at a stride of 4 pixels from
// the start of the frame, sets the group's first byte from the stream at
// pos+group, and advances pos by 7. How the stream should really be laid out
// is unknown, so every use is reported with ErrIncompleteOpcode.
func pixelGroup(frame, s []byte, pos int) (int, error) {
	start := pos
	if !has(s, pos+1, 5) {
		return pos, &OpcodeError{Op: opGroup, Pos: start, Err: ErrTruncatedOperand}
	}
	group := 2 * int(s[pos+1])
	repeats := le32(s, pos+2)
	detail := fmt.Sprintf("group %d bytes x%d", group, repeats)

	off := 0
	for r := uint32(0); r < repeats; r++ {
		src := pos + group
		dst := 2 * off
		if src >= len(s) {
			return pos, &OpcodeError{Op: opGroup, Pos: start, Err: ErrTruncatedOperand, Detail: detail}
		}
		if !has(frame, dst, max(group, 1)) {
			return pos, &OpcodeError{Op: opGroup, Pos: start, Err: ErrOutOfFrame, Detail: detail}
		}
		clear(frame[dst : dst+group])
		frame[dst] = s[src]
		off += 4
		pos += 7
	}
	return pos, &OpcodeError{Op: opGroup, Pos: start, Err: ErrIncompleteOpcode, Detail: detail}
}
