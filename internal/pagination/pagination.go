// Package pagination shapes keyset-paginated list responses.
package pagination

const (
	// DefaultLimit applies when the caller sends no limit.
	DefaultLimit = 20
	// MaxLimit caps feeds, comments, notifications and graph lists.
	MaxLimit = 50
	// MaxMessageLimit caps conversation message pages.
	MaxMessageLimit = 100
)

// Request is the paging portion of a list call. Cursor is the id of the last
// item the caller has already seen.
type Request struct {
	Limit  int    `query:"limit" validate:"omitempty,min=0"`
	Cursor string `query:"cursor" validate:"omitempty,uuid"`
}

// Clamp returns the effective page size under max.
func (r Request) Clamp(max int) int {
	switch {
	case r.Limit <= 0:
		if DefaultLimit > max {
			return max
		}
		return DefaultLimit
	case r.Limit > max:
		return max
	default:
		return r.Limit
	}
}

// Page is one slice of an ordered list. NextCursor is nil on the last page.
type Page[T any] struct {
	Data       []T     `json:"data"`
	NextCursor *string `json:"nextCursor"`
}

// Build turns up to limit+1 fetched rows into a page. When the extra row is
// present it is dropped and the id of the last kept row becomes the cursor, so
// the next query resumes strictly after it.
func Build[T any](rows []T, limit int, id func(T) string) Page[T] {
	page := Page[T]{Data: rows}
	if len(rows) > limit {
		page.Data = rows[:limit]
		if limit > 0 {
			next := id(page.Data[limit-1])
			page.NextCursor = &next
		}
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page
}

// Map converts the items of a page while keeping its cursor.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{Data: make([]U, 0, len(p.Data)), NextCursor: p.NextCursor}
	for _, item := range p.Data {
		out.Data = append(out.Data, fn(item))
	}
	return out
}
