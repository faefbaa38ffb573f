package avf

// transparentKey is the packed value reserved for transparency:
// full green with red and blue at zero.
const transparentKey = 0b0_00000_11111_00000

// ToRGBA converts a packed 15-bit frame to width*height RGBA pixels.
//
// Blue and green keep their five bits shifted to the top of the byte; red is
// taken as (p&0x7C00)>>7 and the unused top bit is dropped. Pixels whose raw
// value equals transparentKey become (0,0,0,0). Short input leaves the
// remaining pixels zero; excess input is dropped.
func ToRGBA(packed []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	for i, o := 0, 0; i+1 < len(packed) && o+3 < len(out); i, o = i+2, o+4 {
		p := le16(packed, i)
		if p == transparentKey {
			continue
		}
		out[o+0] = byte((p & 0x7C00) >> 7)
		out[o+1] = byte((p & 0x03E0) >> 2)
		out[o+2] = byte((p & 0x001F) << 3)
		out[o+3] = 0xFF
	}
	return out
}
