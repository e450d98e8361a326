package enums

import (
	"fmt"
	"strings"
)

// SortOrder is the direction applied to a listing's primary sort field.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SQL returns the keyword used in ORDER BY clauses.
func (o SortOrder) SQL() string {
	if o == SortOrderDesc {
		return "DESC"
	}
	return "ASC"
}

// ParseSortOrder accepts asc/desc in any case; empty input yields asc.
func ParseSortOrder(value string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "asc":
		return SortOrderAsc, nil
	case "desc":
		return SortOrderDesc, nil
	}
	return "", fmt.Errorf("invalid sort order %q", value)
}
