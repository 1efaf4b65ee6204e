package grid

// hashRow computes a 64-bit FNV-1a hash over a row's cell content and
// style, matching the invariant that two rows with identical rendered
// text and style always hash identically (and vice versa, barring
// collisions). Used by View to populate GridView's per-row hashes, which
// LineCache and the renderer use to skip unchanged rows.
func hashRow(cells []Cell) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	h := uint64(offset64)
	mix := func(b byte) {
		h ^= uint64(b)
		h *= prime64
	}
	mixUint32 := func(v uint32) {
		mix(byte(v))
		mix(byte(v >> 8))
		mix(byte(v >> 16))
		mix(byte(v >> 24))
	}

	for _, c := range cells {
		mixUint32(uint32(c.Char))
		mix(byte(c.Fg.Type))
		mix(c.Fg.Index)
		mix(c.Fg.R)
		mix(c.Fg.G)
		mix(c.Fg.B)
		mix(byte(c.Bg.Type))
		mix(c.Bg.Index)
		mix(c.Bg.R)
		mix(c.Bg.G)
		mix(c.Bg.B)
		mix(byte(c.Flags))
		mixUint32(c.HyperlinkID)
		if c.Wide {
			mix(1)
		} else {
			mix(0)
		}
	}
	return h
}
