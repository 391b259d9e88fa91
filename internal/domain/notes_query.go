package domain

import (
	"fmt"
)

type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

const (
	DefaultNotesSort     = "updated_at"
	DefaultNotesPageSize = 10
)

// Parameters for listing notes
//
// NOTE: The query is used as part of cache keys, so it must stay a plain
// comparable value without pointers or maps.
type NotesQuery struct {
	Search   string
	Role     NoteRole
	Sort     string
	Order    SortOrder
	Page     int
	PageSize int
}

func DefaultNotesQuery() NotesQuery {
	return NotesQuery{
		Sort:     DefaultNotesSort,
		Order:    SortOrderDesc,
		Page:     1,
		PageSize: DefaultNotesPageSize,
	}
}

func (q NotesQuery) WithPage(page int) NotesQuery {
	q.Page = page
	return q
}

func (q NotesQuery) Validate() error {
	if q.Page < 0 {
		return fmt.Errorf("%w: page must not be negative", ErrValidation)
	}
	if q.PageSize < 0 {
		return fmt.Errorf("%w: page size must not be negative", ErrValidation)
	}
	switch q.Order {
	case "", SortOrderAsc, SortOrderDesc:
	default:
		return fmt.Errorf("%w: invalid sort order '%s'", ErrValidation, q.Order)
	}
	if q.Role != "" {
		if _, err := ParseNoteRole(string(q.Role)); err != nil {
			return err
		}
	}
	return nil
}

type Pagination[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}
