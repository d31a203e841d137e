package pagination

import "github.com/gofiber/fiber/v2"

const (
	// DefaultLimit is the default number of items per page
	DefaultLimit = 20
	// MaxLimit is the maximum number of items per page
	MaxLimit = 100
)

// Params represents pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Meta represents pagination metadata
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Page is a page of items plus its metadata
type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// GetParams extracts ?page= and ?limit= clamped to sane bounds
func GetParams(c *fiber.Ctx) Params {
	return NewParams(c.QueryInt("page", 1), c.QueryInt("limit", DefaultLimit))
}

// NewParams clamps page and limit and derives the offset
func NewParams(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// NewPage wraps items with metadata for total
func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Page[T]{
		Items: items,
		Meta: Meta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page < totalPages,
			HasPrev:    p.Page > 1,
		},
	}
}
