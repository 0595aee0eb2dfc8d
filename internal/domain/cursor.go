package domain

// Cursor maps each kind to the next page to fetch. Pages start at 1.
type Cursor map[Kind]int

// DefaultCursor starts both kinds at page 1.
func DefaultCursor() Cursor {
	return Cursor{KindAnime: 1, KindManga: 1}
}

// Page returns the next page for kind, never less than 1.
func (c Cursor) Page(kind Kind) int {
	if p, ok := c[kind]; ok && p >= 1 {
		return p
	}
	return 1
}

// Normalize fills missing kinds and clamps invalid pages to 1.
func (c Cursor) Normalize() Cursor {
	out := make(Cursor, len(Kinds))
	for _, k := range Kinds {
		out[k] = c.Page(k)
	}
	return out
}

// Clone returns an independent copy.
func (c Cursor) Clone() Cursor {
	out := make(Cursor, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
