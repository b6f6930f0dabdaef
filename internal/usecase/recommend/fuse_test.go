package recommend

import (
	"math"
	"testing"

	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
	"github.com/kailas-cloud/vecrec/internal/domain/mix"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
)

func TestFuse_DuplicateWithinAspectCountsOnce(t *testing.T) {
	var lists [aspect.Count][]recommend.Hit
	lists[aspect.Theme.Slot()] = hits(5, 0.9, 5, 0.4)

	pool := fuse(lists, mix.Uniform([]aspect.Aspect{aspect.Theme}), seedExternalID)

	if len(pool) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(pool))
	}
	if math.Abs(pool[0].Score-0.9) > 1e-9 {
		t.Errorf("score = %v, want 0.9", pool[0].Score)
	}
}

func TestFuse_SkipsUnweightedAndNonFinite(t *testing.T) {
	var lists [aspect.Count][]recommend.Hit
	lists[aspect.Theme.Slot()] = hits(5, math.NaN(), 6, math.Inf(1), 7, 0.3)
	lists[aspect.Mood.Slot()] = hits(8, 0.9)

	pool := fuse(lists, mix.Parse("1-0"), seedExternalID)

	if len(pool) != 1 || pool[0].ExternalID != 7 {
		t.Errorf("unexpected pool: %+v", pool)
	}
}

func TestFuse_DropsOverflowingContributions(t *testing.T) {
	var lists [aspect.Count][]recommend.Hit
	lists[aspect.Theme.Slot()] = hits(5, math.MaxFloat64, 6, 0.5)
	lists[aspect.Mood.Slot()] = hits(5, math.MaxFloat64, 6, 0.5)

	pool := fuse(lists, mix.Parse("2-2"), seedExternalID)

	if len(pool) != 1 || pool[0].ExternalID != 6 {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	if math.Abs(pool[0].Score-2) > 1e-9 {
		t.Errorf("score = %v, want 2", pool[0].Score)
	}
}

func TestFuse_SaturatedScoreStaysFinite(t *testing.T) {
	var lists [aspect.Count][]recommend.Hit
	lists[aspect.Theme.Slot()] = hits(5, math.MaxFloat64)
	lists[aspect.Mood.Slot()] = hits(5, math.MaxFloat64)

	pool := fuse(lists, mix.Parse("1-1"), seedExternalID)

	if len(pool) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(pool))
	}
	if pool[0].Score != math.MaxFloat64 {
		t.Errorf("score = %v, want MaxFloat64", pool[0].Score)
	}
	if _, ok := pool[0].Contributions[aspect.Mood]; ok {
		t.Error("overflowing mood contribution must be dropped")
	}
}

func TestFuse_DiscoveryOrderFollowsSlots(t *testing.T) {
	var lists [aspect.Count][]recommend.Hit
	lists[aspect.Experience.Slot()] = hits(1, 0.5)
	lists[aspect.Theme.Slot()] = hits(2, 0.5)

	pool := fuse(lists, mix.Parse("1-1-1-1-1-1-1-1-1-1"), seedExternalID)

	if len(pool) != 2 || pool[0].ExternalID != 2 || pool[0].Order != 0 || pool[1].Order != 1 {
		t.Errorf("unexpected discovery order: %+v", pool)
	}
}

func TestRank(t *testing.T) {
	pool := []*recommend.Fused{
		{ExternalID: 1, Score: 0.2, Order: 0},
		{ExternalID: 2, Score: 0.9, Order: 1},
		{ExternalID: 3, Score: 0.2, Order: 2},
		{ExternalID: 4, Score: 0.5, Order: 3},
	}

	got := rank(pool, 3)

	want := []int64{2, 4, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ExternalID != id {
			t.Errorf("rank[%d] = %d, want %d", i, got[i].ExternalID, id)
		}
	}
}
