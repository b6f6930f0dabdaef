package qdrant

import "github.com/kailas-cloud/vecrec/internal/domain/filter"

type wireFilter struct {
	Must    []wireCondition `json:"must,omitempty"`
	MustNot []wireCondition `json:"must_not,omitempty"`
}

type wireCondition struct {
	Key   string     `json:"key"`
	Match *wireMatch `json:"match,omitempty"`
	Range *wireRange `json:"range,omitempty"`
}

type wireMatch struct {
	Value any `json:"value"`
}

type wireRange struct {
	GTE *float64 `json:"gte,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// buildFilter translates filter.Expression into a Qdrant filter object.
// An empty expression yields nil so the field is omitted.
func buildFilter(expr filter.Expression) *wireFilter {
	if expr.IsEmpty() {
		return nil
	}
	f := &wireFilter{}
	for _, c := range expr.Must() {
		f.Must = append(f.Must, buildCondition(c))
	}
	for _, c := range expr.MustNot() {
		f.MustNot = append(f.MustNot, buildCondition(c))
	}
	return f
}

func buildCondition(c filter.Condition) wireCondition {
	switch c.Kind() {
	case filter.KindKeyword:
		return wireCondition{Key: c.Key(), Match: &wireMatch{Value: c.Keyword()}}
	case filter.KindInteger:
		return wireCondition{Key: c.Key(), Match: &wireMatch{Value: c.Integer()}}
	default:
		r := c.Range()
		return wireCondition{Key: c.Key(), Range: &wireRange{GTE: r.GTE(), LTE: r.LTE()}}
	}
}
