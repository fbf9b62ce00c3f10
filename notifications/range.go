package notifications

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 50

// Range is a half-open window [From, To) over the newest-first history.
type Range struct {
	From int
	To   int
}

// FirstPage is the window a reload starts from.
func FirstPage(limit int) Range {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Range{From: 0, To: limit}
}

// Next is the window immediately after r with the same width.
func (r Range) Next() Range {
	w := r.Len()
	return Range{From: r.To, To: r.To + w}
}

func (r Range) Len() int {
	return r.To - r.From
}
