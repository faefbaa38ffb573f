package avf

// Ring buffer dictionary parameters. The write cursor starts at
// dictSize-maxMatch (0xFEE) and the buffer starts zeroed.
const (
	dictSize  = 4096
	dictMask  = dictSize - 1
	minMatch  = 3
	maxMatch  = 18
	dictStart = dictSize - maxMatch
)

// Decompress expands an LZSS stream. Each flag byte governs up to eight
// items, least significant bit first: a set bit is a literal byte, a clear bit
// a two byte reference (low 8 offset bits; high 4 offset bits and length-3).
//
// The format has no length field, so decoding stops where the input ends,
// including in the middle of a flag group or before the second byte of a
// reference. Malformed input gives garbage output, never an error.
// sizeHint only preallocates the output.
func Decompress(src []byte, sizeHint int) []byte {
	var dict [dictSize]byte
	out := make([]byte, 0, max(sizeHint, 0))
	w := dictStart
	pos := 0
	for pos < len(src) {
		flags := src[pos]
		pos++
		for i := 0; i < 8 && pos < len(src); i, flags = i+1, flags>>1 {
			if flags&1 != 0 {
				c := src[pos]
				pos++
				out = append(out, c)
				dict[w] = c
				w = (w + 1) & dictMask
				continue
			}
			if pos+1 >= len(src) {
				return out
			}
			r := int(src[pos]) | int(src[pos+1]&0xF0)<<4
			n := int(src[pos+1]&0x0F) + minMatch
			pos += 2
			for ; n > 0; n-- {
				c := dict[r]
				out = append(out, c)
				dict[w] = c
				r = (r + 1) & dictMask
				w = (w + 1) & dictMask
			}
		}
	}
	return out
}
