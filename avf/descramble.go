package avf

// Descramble undoes the position keyed offset applied to every chunk payload:
// the byte at position n of the chunk was stored as b + n mod 256.
// p is modified in place.
func Descramble(p []byte) {
	for n := range p {
		p[n] -= byte(n)
	}
}
