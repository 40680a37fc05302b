package expr

import (
	"strings"

	"github.com/onisimchukv/ksql/internal/sql/schema"
)

// SelectItem is one entry of a SELECT list.
type SelectItem interface {
	String() string
	selectItem()
}

// SingleColumn selects one expression, optionally under an alias.
type SingleColumn struct {
	Expression Expression
	Alias      schema.ColumnName
}

func (s *SingleColumn) selectItem() {}

func (s *SingleColumn) String() string {
	if s.Alias == "" {
		return s.Expression.String()
	}
	return s.Expression.String() + " AS " + string(s.Alias)
}

// AllColumns is "*", or "source.*" when Source is set.
type AllColumns struct {
	Source schema.SourceName
}

func (a *AllColumns) selectItem() {}

func (a *AllColumns) String() string {
	if a.Source != "" {
		return string(a.Source) + ".*"
	}
	return "*"
}

// Projection is an ordered SELECT list.
type Projection struct {
	items []SelectItem
}

// NewProjection creates a projection over items.
func NewProjection(items ...SelectItem) *Projection {
	return &Projection{items: items}
}

// Items returns the select items in order.
func (p *Projection) Items() []SelectItem {
	return p.items
}

// ContainsExpression reports whether the projection selects e, either as an
// explicit expression or through a star covering a column reference.
func (p *Projection) ContainsExpression(e Expression) bool {
	ref, isRef := e.(*ColumnReference)
	for _, item := range p.items {
		switch item := item.(type) {
		case *SingleColumn:
			if Equal(item.Expression, e) {
				return true
			}
		case *AllColumns:
			if isRef && (item.Source == "" || item.Source == ref.Qualifier) {
				return true
			}
		}
	}
	return false
}

// ContainsExpressions reports whether every expression in es is selected.
func (p *Projection) ContainsExpressions(es []Expression) bool {
	for _, e := range es {
		if !p.ContainsExpression(e) {
			return false
		}
	}
	return true
}

func (p *Projection) String() string {
	parts := make([]string, len(p.items))
	for i, item := range p.items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}
