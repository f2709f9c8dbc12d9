package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"opsdeck/internal/core/domain"
)

// ventureFilter appends a venture restriction for assigned-scope users. Users
// with no assignments match nothing.
func ventureFilter(scope domain.UserScope, col string, args *[]any) string {
	if scope.AllVentures {
		return ""
	}
	ids := scope.VentureIDs
	if len(ids) == 0 {
		ids = []int64{-1}
	}
	*args = append(*args, ids)
	return fmt.Sprintf(" AND %s = ANY($%d)", col, len(*args))
}

// parseInt64Array decodes a postgres bigint[] literal like {1,2,3}.
func parseInt64Array(raw []byte) ([]int64, error) {
	s := strings.Trim(string(raw), "{}")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad bigint[] element %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
