package split

import "math/rand/v2"

// Random divides b into pieces of random length whose concatenation is b.
// Each piece is 1 to len(remaining) bytes long, chosen uniformly, except that with probability
// pZero an empty piece is inserted instead.
// An empty b yields a single empty piece, the result is never empty.
// Pieces share b's backing array.
func Random(r *rand.Rand, b []byte, pZero float64) [][]byte {
	if len(b) == 0 {
		return [][]byte{{}}
	}
	var rv [][]byte
	for len(b) > 0 {
		l := 0
		if r.Float64() >= pZero {
			l = 1 + r.IntN(len(b))
		}
		rv = append(rv, b[:l:l])
		b = b[l:]
	}
	return rv
}
