package recommend

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/mix"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
)

const eps = 1e-9

func assertEmpty(t *testing.T, env recommend.Envelope, titleID int64) {
	t.Helper()
	if env.TitleID != titleID {
		t.Errorf("titleId = %d, want %d", env.TitleID, titleID)
	}
	if env.Count != 0 || env.Results == nil || len(env.Results) != 0 {
		t.Errorf("expected empty envelope, got %+v", env)
	}
}

func TestRecommend_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		titleID int64
		limit   int
	}{
		{"zero title", 0, 10},
		{"negative title", -5, 10},
		{"zero limit", 1, 0},
		{"limit above max", 1, 51},
		{"negative limit", 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{profiles: seedProfiles(aspect.Theme)}
			svc := newTestService(store, nil)

			assertEmpty(t, svc.Recommend(context.Background(), tt.titleID, tt.limit), tt.titleID)
			if store.getCalls != 0 {
				t.Error("store must not be queried for invalid input")
			}
		})
	}
}

func TestRecommend_LimitBounds(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{aspect.Theme: hits(5, 0.9)}),
	}
	svc := newTestService(store, nil)

	for _, limit := range []int{recommend.MinLimit, recommend.MaxLimit} {
		if env := svc.Recommend(context.Background(), seedTitleID, limit); env.Count != 1 {
			t.Errorf("limit %d: expected 1 result, got %d", limit, env.Count)
		}
	}
}

func TestRecommend_NoSeed(t *testing.T) {
	store := &mockStore{profiles: nil}
	svc := newTestService(store, nil)

	assertEmpty(t, svc.Recommend(context.Background(), 42, 10), 42)
	if len(store.calls) != 0 {
		t.Error("no searches expected without seed profiles")
	}
}

func TestRecommend_StoreError(t *testing.T) {
	store := &mockStore{profilesErr: domain.ErrStoreUnavailable}
	svc := newTestService(store, nil)

	assertEmpty(t, svc.Recommend(context.Background(), 42, 10), 42)
}

func TestRecommend_FusesAspects(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9, 6, 0.5),
			aspect.Mood:  hits(5, 0.8, 7, 0.6),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if env.TitleID != seedTitleID {
		t.Errorf("titleId = %d", env.TitleID)
	}
	if want := []int64{5, 7, 6}; !reflect.DeepEqual(ids(env), want) {
		t.Fatalf("order = %v, want %v", ids(env), want)
	}
	if env.Count != 3 {
		t.Errorf("count = %d, want 3", env.Count)
	}
	if math.Abs(env.Results[0].Score-1.7) > eps {
		t.Errorf("fused score = %v, want 1.7", env.Results[0].Score)
	}
	if env.Results[0].SourceBucket != aspect.Theme {
		t.Errorf("source bucket = %q, want theme", env.Results[0].SourceBucket)
	}
	if env.Results[1].SourceBucket != aspect.Mood {
		t.Errorf("source bucket = %q, want mood", env.Results[1].SourceBucket)
	}
	if env.Results[0].Metadata != nil {
		t.Error("metadata must stay nil without a provider")
	}
}

func TestRecommend_SearchArguments(t *testing.T) {
	store := &mockStore{profiles: seedProfiles(aspect.Theme, aspect.Tone)}
	svc := newTestService(store, nil)

	svc.Recommend(context.Background(), seedTitleID, 7)

	if len(store.calls) != 2 {
		t.Fatalf("expected 2 searches, got %d", len(store.calls))
	}
	for _, c := range store.calls {
		if c.excludeID != seedExternalID {
			t.Errorf("%s: excludeID = %d, want %d", c.aspect, c.excludeID, seedExternalID)
		}
		if c.limit != 21 {
			t.Errorf("%s: k = %d, want 21", c.aspect, c.limit)
		}
		if c.year == nil || *c.year != seedYearValue {
			t.Errorf("%s: year = %v, want %d", c.aspect, c.year, seedYearValue)
		}
	}
}

func TestRecommend_OverfetchFactorClamped(t *testing.T) {
	tests := []struct {
		factor int
		want   int
	}{
		{0, 30},
		{1, 20},
		{2, 20},
		{3, 30},
		{9, 30},
	}
	for _, tt := range tests {
		store := &mockStore{profiles: seedProfiles(aspect.Theme)}
		svc := New(store, nil, Options{OverfetchFactor: tt.factor}, nil)

		svc.Recommend(context.Background(), seedTitleID, 10)

		if len(store.calls) != 1 || store.calls[0].limit != tt.want {
			t.Errorf("factor %d: calls = %+v, want k=%d", tt.factor, store.calls, tt.want)
		}
	}
}

func TestRecommend_ExcludesSeed(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(int(seedExternalID), 0.99, 5, 0.7),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if want := []int64{5}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
}

func TestRecommend_DegradesOnAspectFailure(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: func(_ context.Context, a aspect.Aspect) ([]recommend.Hit, error) {
			if a == aspect.Mood {
				return nil, errors.New("boom")
			}
			return hits(5, 0.9, 6, 0.4), nil
		},
	}
	svc := newTestService(store, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if want := []int64{5, 6}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
	if math.Abs(env.Results[0].Score-0.9) > eps {
		t.Errorf("score = %v, want 0.9", env.Results[0].Score)
	}
}

func TestRecommend_DegradesOnTimeout(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Pace),
		searchFn: func(ctx context.Context, a aspect.Aspect) ([]recommend.Hit, error) {
			if a == aspect.Pace {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return hits(5, 0.9), nil
		},
	}
	svc := New(store, nil, Options{SearchTimeout: 20 * time.Millisecond}, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if want := []int64{5}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
}

func TestRecommend_AllSearchesFail(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: func(_ context.Context, _ aspect.Aspect) ([]recommend.Hit, error) {
			return nil, domain.ErrStoreUnavailable
		},
	}
	svc := newTestService(store, nil)

	assertEmpty(t, svc.Recommend(context.Background(), seedTitleID, 10), seedTitleID)
}

func TestRecommend_Truncates(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9, 6, 0.8, 7, 0.7, 8, 0.6),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 2)

	if want := []int64{5, 6}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
	if env.Count != 2 {
		t.Errorf("count = %d, want 2", env.Count)
	}
}

func TestRecommend_TiesKeepDiscoveryOrder(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(11, 0.5, 10, 0.5),
			aspect.Mood:  hits(9, 0.5),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if want := []int64{11, 10, 9}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
}

func TestRecommend_Idempotent(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood, aspect.Tone),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9, 6, 0.5, 8, 0.3),
			aspect.Mood:  hits(6, 0.8, 7, 0.6),
			aspect.Tone:  hits(7, 0.4, 5, 0.1),
		}),
	}
	svc := newTestService(store, nil)

	first := svc.Recommend(context.Background(), seedTitleID, 10)
	for range 5 {
		if again := svc.Recommend(context.Background(), seedTitleID, 10); !reflect.DeepEqual(first, again) {
			t.Fatalf("results differ between runs:\n%+v\n%+v", first, again)
		}
	}
}

func TestRecommendWithMix_SkipsZeroWeights(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9),
			aspect.Mood:  hits(7, 0.6),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.RecommendWithMix(context.Background(), seedTitleID, 10, "0-1")

	searched := store.searchedAspects()
	if searched[aspect.Theme] || !searched[aspect.Mood] {
		t.Errorf("searched = %v, want only mood", searched)
	}
	if want := []int64{7}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
}

func TestRecommendWithMix_BlankSpecUsesDefaults(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(7, 0.9),
			aspect.Mood:  hits(8, 0.5),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.RecommendWithMix(context.Background(), seedTitleID, 10, "  ")
	if want := []int64{7, 8}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
}

func TestRecommendWithMix_AllZero(t *testing.T) {
	for _, spec := range []string{"0", "0-0-0", "abc", "-"} {
		store := &mockStore{profiles: seedProfiles(aspect.Theme, aspect.Mood)}
		svc := newTestService(store, nil)

		assertEmpty(t, svc.RecommendWithMix(context.Background(), seedTitleID, 10, spec), seedTitleID)
		if len(store.calls) != 0 {
			t.Errorf("%q: expected no searches, got %d", spec, len(store.calls))
		}
	}
}

func TestRecommendWithMix_WeightsScaleScores(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9, 6, 0.5),
			aspect.Mood:  hits(5, 0.8, 7, 0.6),
		}),
	}
	svc := newTestService(store, nil)

	env := svc.RecommendWithMix(context.Background(), seedTitleID, 10, "1-2")

	if want := []int64{5, 7, 6}; !reflect.DeepEqual(ids(env), want) {
		t.Fatalf("order = %v, want %v", ids(env), want)
	}
	wantScores := []float64{2.5, 1.2, 0.5}
	for i, w := range wantScores {
		if math.Abs(env.Results[i].Score-w) > eps {
			t.Errorf("result %d score = %v, want %v", i, env.Results[i].Score, w)
		}
	}
	if env.Results[0].SourceBucket != aspect.Mood {
		t.Errorf("source bucket = %q, want mood", env.Results[0].SourceBucket)
	}
}

func TestRecommendWithMix_IgnoresAspectsWithoutSeed(t *testing.T) {
	store := &mockStore{profiles: seedProfiles(aspect.Theme)}
	svc := newTestService(store, nil)

	svc.RecommendWithMix(context.Background(), seedTitleID, 10, "1-1-1-1-1-1-1-1-1-1")

	if len(store.calls) != 1 || store.calls[0].aspect != aspect.Theme {
		t.Errorf("expected a single theme search, got %+v", store.calls)
	}
}

func TestRecommendWithMix_Monotonic(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9),
			aspect.Mood:  hits(7, 0.6),
		}),
	}
	svc := newTestService(store, nil)

	scoreOf := func(env recommend.Envelope, id int64) float64 {
		for _, r := range env.Results {
			if r.ExternalID == id {
				return r.Score
			}
		}
		return -1
	}

	prev := -1.0
	for _, spec := range []string{"1-0.5", "1-1", "1-2", "1-10"} {
		got := scoreOf(svc.RecommendWithMix(context.Background(), seedTitleID, 10, spec), 7)
		if got < prev {
			t.Errorf("%s: score %v dropped below %v", spec, got, prev)
		}
		prev = got
	}
}

func allAspectsHitting(id int, raw float64) *mockStore {
	all := aspect.All()
	return &mockStore{
		profiles: seedProfiles(all[:]...),
		searchFn: func(_ context.Context, _ aspect.Aspect) ([]recommend.Hit, error) {
			return hits(id, raw), nil
		},
	}
}

func assertFiniteScores(t *testing.T, env recommend.Envelope) {
	t.Helper()
	for i, r := range env.Results {
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			t.Errorf("result %d (%d) score = %v, want finite", i, r.ExternalID, r.Score)
		}
	}
}

func TestRecommendWithMix_ExtremeWeightsStayFinite(t *testing.T) {
	svc := newTestService(allAspectsHitting(42, 0.9), nil)

	env := svc.RecommendWithMix(context.Background(), seedTitleID, 10, "1e308-1e308-1e308")

	if env.Count != 1 || env.Results[0].ExternalID != 42 {
		t.Fatalf("unexpected results: %+v", env)
	}
	assertFiniteScores(t, env)
	if want := 3 * 0.9 * mix.MaxWeight; math.Abs(env.Results[0].Score-want) > 1e-6 {
		t.Errorf("score = %v, want %v", env.Results[0].Score, want)
	}
}

func TestRecommend_HugeRawScoresStayFinite(t *testing.T) {
	svc := newTestService(allAspectsHitting(42, math.MaxFloat64), nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if env.Count != 1 {
		t.Fatalf("count = %d, want 1", env.Count)
	}
	assertFiniteScores(t, env)
}

func TestRecommend_SearchPanicDegrades(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme, aspect.Mood),
		searchFn: func(_ context.Context, a aspect.Aspect) ([]recommend.Hit, error) {
			if a == aspect.Mood {
				panic("malformed payload")
			}
			return hits(5, 0.9), nil
		},
	}
	svc := newTestService(store, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if want := []int64{5}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("results = %v, want %v", ids(env), want)
	}
}

func TestRecommend_EnrichmentPanicDegrades(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{aspect.Theme: hits(5, 0.9, 6, 0.8)}),
	}
	meta := &mockMeta{lookupFn: func(_ context.Context, id int64) (*recommend.Metadata, error) {
		if id == 5 {
			panic("nil body")
		}
		return &recommend.Metadata{Title: "Six"}, nil
	}}
	svc := newTestService(store, meta)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if want := []int64{5, 6}; !reflect.DeepEqual(ids(env), want) {
		t.Fatalf("results = %v, want %v", ids(env), want)
	}
	if env.Results[0].Metadata != nil {
		t.Error("panicking lookup must leave a bare entry")
	}
	if md := env.Results[1].Metadata; md == nil || md.Title != "Six" {
		t.Errorf("unexpected metadata: %+v", md)
	}
}

func TestRecommend_Enriches(t *testing.T) {
	year := 2001
	poster := "/p.jpg"
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{
			aspect.Theme: hits(5, 0.9, 6, 0.8, 7, 0.7),
		}),
	}
	meta := &mockMeta{lookupFn: func(_ context.Context, id int64) (*recommend.Metadata, error) {
		switch id {
		case 5:
			return &recommend.Metadata{Title: "Five", Year: &year, PosterPath: &poster}, nil
		case 6:
			return nil, domain.ErrNotFound
		default:
			return nil, domain.ErrMetadataUnavailable
		}
	}}
	svc := newTestService(store, meta)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if env.Count != 3 {
		t.Fatalf("count = %d, want 3", env.Count)
	}
	if md := env.Results[0].Metadata; md == nil || md.Title != "Five" || *md.Year != 2001 {
		t.Errorf("unexpected metadata: %+v", md)
	}
	if env.Results[1].Metadata != nil || env.Results[2].Metadata != nil {
		t.Error("failed lookups must degrade to bare entries")
	}
	if want := []int64{5, 6, 7}; !reflect.DeepEqual(ids(env), want) {
		t.Errorf("enrichment must not reorder: %v", ids(env))
	}
}

func TestRecommend_EnrichmentTimeout(t *testing.T) {
	store := &mockStore{
		profiles: seedProfiles(aspect.Theme),
		searchFn: byAspect(map[aspect.Aspect][]recommend.Hit{aspect.Theme: hits(5, 0.9)}),
	}
	meta := &mockMeta{lookupFn: func(ctx context.Context, _ int64) (*recommend.Metadata, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := New(store, meta, Options{EnrichTimeout: 20 * time.Millisecond}, nil)

	env := svc.Recommend(context.Background(), seedTitleID, 10)

	if env.Count != 1 || env.Results[0].Metadata != nil {
		t.Errorf("expected one bare result, got %+v", env)
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.DeadlineExceeded, "timeout"},
		{domain.ErrNotFound, "missing"},
		{errors.New("x"), "error"},
	}
	for _, tt := range tests {
		if got := outcomeOf(tt.err); got != tt.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
