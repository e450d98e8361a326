// Package pagination turns page/limit query inputs into SQL windows and
// page envelopes.
package pagination

import "github.com/scentlab/perfumery-backend/pkg/types"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params is a 1-based page request.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps Page to at least 1 and Limit into [1, MaxLimit],
// falling back to DefaultLimit when unset.
func (p Params) Normalize() Params {
	out := Params{Page: max(p.Page, 1), Limit: p.Limit}
	switch {
	case out.Limit <= 0:
		out.Limit = DefaultLimit
	case out.Limit > MaxLimit:
		out.Limit = MaxLimit
	}
	return out
}

func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	per := int64(Params{Limit: limit}.Normalize().Limit)
	return int((total + per - 1) / per)
}

// Build wraps one page of rows with the counters clients page through.
func Build[T any](p Params, rows []T, total int64) types.Page[T] {
	n := p.Normalize()
	if rows == nil {
		rows = []T{}
	}
	return types.Page[T]{
		Data:       rows,
		Total:      total,
		Page:       n.Page,
		TotalPages: TotalPages(total, n.Limit),
	}
}
