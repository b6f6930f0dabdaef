package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 16

// Expression is a structured pre-filter with must/must_not boolean semantics.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Kind discriminates condition variants.
type Kind int

const (
	// KindKeyword is an exact string match on a tag/keyword field.
	KindKeyword Kind = iota
	// KindInteger is an exact match on an integer field.
	KindInteger
	// KindRange is a numeric range.
	KindRange
)

// Condition is a single filter clause.
type Condition struct {
	kind      Kind
	key       string
	keyword   string
	integer   int64
	rangeExpr Range
}

// NewKeyword creates an exact keyword match condition.
func NewKeyword(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{kind: KindKeyword, key: key, keyword: value}, nil
}

// NewInteger creates an exact integer match condition.
func NewInteger(key string, value int64) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: KindInteger, key: key, integer: value}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: KindRange, key: key, rangeExpr: r}, nil
}

// Kind returns the condition variant.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Keyword returns the keyword match value.
func (c Condition) Keyword() string { return c.keyword }

// Integer returns the integer match value.
func (c Condition) Integer() int64 { return c.integer }

// Range returns the numeric range expression.
func (c Condition) Range() Range { return c.rangeExpr }

// Range is a numeric range with inclusive gte/lte boundaries.
// A nil boundary is open.
type Range struct {
	gte *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
func NewRangeFilter(gte, lte *float64) (Range, error) {
	if gte == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Range{}, fmt.Errorf("range lower bound %g exceeds upper bound %g", *gte, *lte)
	}
	return Range{gte: gte, lte: lte}, nil
}

// Between is shorthand for the closed range [lo, hi].
func Between(lo, hi float64) (Range, error) {
	return NewRangeFilter(&lo, &hi)
}

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
