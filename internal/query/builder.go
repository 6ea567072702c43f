// Package query provides a very basic declarative query string constructor.
package query

import (
	"fmt"
	"strings"
)

// Builder accumulates predicate, ordering, and limit fragments over a fixed
// base query and renders them in a deterministic order. Fragments are not
// validated or escaped: callers supply trusted fragment text and bind
// untrusted values through positional parameters alongside the rendered
// query, never by interpolating them into fragments.
type Builder struct {
	base        string
	whereClause []string
	orderBy     []string
	limit       int
}

// NewBuilder starts a builder over the given base query.
func NewBuilder(base string) *Builder {
	return &Builder{base: base, limit: -1}
}

// Where appends a predicate fragment. Fragments are AND-joined in the order
// they were added.
func (b *Builder) Where(clause string) *Builder {
	b.whereClause = append(b.whereClause, clause)
	return b
}

// OrderBy appends an ordering fragment. The first fragment has the highest
// precedence.
func (b *Builder) OrderBy(clause string) *Builder {
	b.orderBy = append(b.orderBy, clause)
	return b
}

// Limit caps the number of rows returned.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// String renders the final query: base, predicates, ordering, limit.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.WriteString(b.base)
	if len(b.whereClause) > 0 {
		sb.WriteString(" where ")
		sb.WriteString(strings.Join(b.whereClause, " and "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" order by ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit >= 0 {
		sb.WriteString(fmt.Sprintf(" limit %d", b.limit))
	}
	return sb.String()
}
