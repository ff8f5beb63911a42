package utils

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a normalised offset/limit pair.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// NormalisePage clamps offset to >= 0 and limit into (0, MaxPageLimit].
func NormalisePage(offset, limit int) Page {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Offset: offset, Limit: limit}
}

// Paginate returns the window of items selected by page. An offset beyond the
// end yields an empty, non-nil slice.
func Paginate[T any](items []T, page Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}
