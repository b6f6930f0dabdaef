package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrec/internal/db"
	"github.com/kailas-cloud/vecrec/internal/domain/filter"
)

const scoreField = "__vector_score"

var (
	hitFields    = []string{db.FieldTmdbID, db.FieldProfileType, db.FieldYear, scoreField}
	scrollFields = []string{
		db.FieldTmdbID, db.FieldTitleID, db.FieldProfileType, db.FieldSlot, db.FieldYear, db.FieldVector,
	}
)

// SearchKNN runs a filtered KNN search via FT.SEARCH, nearest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, db.FieldVector)
	queryStr := "*=>" + knnPart
	if filterStr := buildFilter(q.Filters); filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	args := []string{s.IndexName(), queryStr, "RETURN", strconv.Itoa(len(hitFields))}
	args = append(args, hitFields...)
	args = append(args,
		"SORTBY", scoreField, "ASC",
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw)
}

// Scroll pages through one title's profile hashes. The cursor is the next result offset.
func (s *Store) Scroll(ctx context.Context, q *db.ScrollQuery) (*db.ScrollPage, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	offset := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(q.Cursor)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid scroll cursor %q", q.Cursor)
		}
		offset = n
	}

	id := strconv.FormatInt(q.TitleID, 10)
	query := fmt.Sprintf("@%s:[%s %s]", db.FieldTitleID, id, id)

	args := []string{s.IndexName(), query, "RETURN", strconv.Itoa(len(scrollFields))}
	args = append(args, scrollFields...)
	args = append(args,
		"SORTBY", db.FieldSlot, "ASC",
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	total, entries, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}

	page := &db.ScrollPage{Points: make([]db.ProfilePoint, 0, len(entries))}
	for _, fields := range entries {
		p, ok := profileFromFields(fields)
		if !ok {
			continue
		}
		page.Points = append(page.Points, p)
	}
	if next := offset + len(entries); len(entries) > 0 && next < total {
		page.Next = strconv.Itoa(next)
	}
	return page, nil
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	_, entries, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}

	res := &db.SearchResult{Hits: make([]db.SearchHit, 0, len(entries))}
	for _, fields := range entries {
		tmdbID, err := strconv.ParseInt(fields[db.FieldTmdbID], 10, 64)
		if err != nil {
			continue
		}
		hit := db.SearchHit{
			Payload: db.HitPayload{
				TmdbID:      tmdbID,
				ProfileType: fields[db.FieldProfileType],
				Year:        parseOptionalInt(fields[db.FieldYear]),
			},
		}
		if d, err := strconv.ParseFloat(fields[scoreField], 64); err == nil {
			hit.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
		}
		res.Hits = append(res.Hits, hit)
	}
	return res, nil
}

// parseEntries reads the RESP2 2-stride layout [total, key1, fields1, key2, fields2, ...].
func parseEntries(raw []rueidis.RedisMessage) (int, []map[string]string, error) {
	if len(raw) == 0 {
		return 0, nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, nil, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]map[string]string, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, parseFieldPairs(fields))
	}
	return int(total), entries, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func profileFromFields(f map[string]string) (db.ProfilePoint, bool) {
	tmdbID, err := strconv.ParseInt(f[db.FieldTmdbID], 10, 64)
	if err != nil {
		return db.ProfilePoint{}, false
	}
	titleID, err := strconv.ParseInt(f[db.FieldTitleID], 10, 64)
	if err != nil {
		return db.ProfilePoint{}, false
	}
	slot, err := strconv.Atoi(f[db.FieldSlot])
	if err != nil {
		return db.ProfilePoint{}, false
	}
	vec, err := bytesToVector(f[db.FieldVector])
	if err != nil || len(vec) == 0 {
		return db.ProfilePoint{}, false
	}

	return db.ProfilePoint{
		Payload: db.ProfilePayload{
			TmdbID:      tmdbID,
			TitleID:     titleID,
			ProfileType: f[db.FieldProfileType],
			Slot:        slot,
			Year:        parseOptionalInt(f[db.FieldYear]),
		},
		Vector: vec,
	}, true
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter query string.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, len(expr.Must())+len(expr.MustNot()))
	for _, cond := range expr.Must() {
		parts = append(parts, buildCondition(cond))
	}
	for _, cond := range expr.MustNot() {
		parts = append(parts, "-"+buildCondition(cond))
	}

	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	switch cond.Kind() {
	case filter.KindKeyword:
		return fmt.Sprintf("@%s:{%s}", cond.Key(), tagEscaper.Replace(cond.Keyword()))
	case filter.KindInteger:
		v := strconv.FormatInt(cond.Integer(), 10)
		return fmt.Sprintf("@%s:[%s %s]", cond.Key(), v, v)
	case filter.KindRange:
		return buildNumericFilter(cond.Key(), cond.Range())
	}
	return ""
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"
	if r.GTE() != nil {
		minBound = strconv.FormatFloat(*r.GTE(), 'g', -1, 64)
	}
	if r.LTE() != nil {
		maxBound = strconv.FormatFloat(*r.LTE(), 'g', -1, 64)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
