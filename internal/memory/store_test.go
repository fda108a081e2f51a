package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadre-oss/warehouse/internal/event"
	"github.com/cadre-oss/warehouse/internal/memory"
	"github.com/cadre-oss/warehouse/internal/storage"
	"github.com/cadre-oss/warehouse/internal/testutil"
)

func strPtr(s string) *string { return &s }

func titles(entries []memory.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func TestAddEntry_UniqueIDsAndTimes(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		e, out := h.Store.AddEntry(ctx, memory.NewEntry{Title: fmt.Sprintf("n%d", i)})
		require.True(t, out.Applied)
		require.True(t, out.Persisted)
		require.NoError(t, out.Err)

		require.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true

		id, err := uuid.Parse(e.ID)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(4), id.Version())
		require.Equal(t, id.String(), e.ID, "id must be lowercase canonical form")

		require.True(t, e.CreateTime.Equal(e.UpdateTime))
	}
	require.Equal(t, 200, h.Store.Count())
}

func TestAddEntry_Defaults(t *testing.T) {
	h := testutil.NewTestHarness(t)

	e, _ := h.Store.AddEntry(context.Background(), memory.NewEntry{})
	require.Equal(t, memory.DefaultTitle, e.Title)
	require.Equal(t, "", e.Content)
	require.NotNil(t, e.Tags)
	require.Empty(t, e.Tags)
	require.Equal(t, time.UTC, e.CreateTime.Location())
}

func TestAddEntry_InsertsAtFront(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddEntry(ctx, memory.NewEntry{Title: "first"})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "second"})

	require.Equal(t, []string{"second", "first"}, titles(h.Store.Entries()))
	h.AssertEventEmitted(event.EntryAdded)
	require.Equal(t, 2, h.EventCount(event.EntryAdded))
}

func TestAddEntry_FrozenClockStillIncreases(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	a, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	b, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "B"})
	require.True(t, b.CreateTime.After(a.CreateTime))
}

func TestUpdateEntry_AppliesPatch(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	orig, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "t", Content: "c", Tags: []string{"x"}})
	h.Clock.Advance(time.Minute)

	updated, out := h.Store.UpdateEntry(ctx, orig.ID, memory.Patch{Title: strPtr("new title")})
	require.True(t, out.Applied)
	require.True(t, out.Persisted)

	got, ok := h.Store.GetByID(orig.ID)
	require.True(t, ok)
	require.Equal(t, updated, got)
	require.Equal(t, "new title", got.Title)
	require.Equal(t, "c", got.Content)
	require.Equal(t, []string{"x"}, got.Tags)
	require.Equal(t, orig.ID, got.ID)
	require.True(t, got.CreateTime.Equal(orig.CreateTime))
	require.True(t, got.UpdateTime.After(orig.UpdateTime))
	require.False(t, got.UpdateTime.Before(got.CreateTime))
	h.AssertEventEmitted(event.EntryUpdated)
}

func TestUpdateEntry_AllFields(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	orig, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "t", Content: "c", Tags: []string{"x"}})
	tags := []string{"y", "z"}
	got, _ := h.Store.UpdateEntry(ctx, orig.ID, memory.Patch{
		Title:   strPtr(""),
		Content: strPtr("body"),
		Tags:    &tags,
	})

	require.Equal(t, "", got.Title, "an explicit empty title is kept")
	require.Equal(t, "body", got.Content)
	require.Equal(t, []string{"y", "z"}, got.Tags)

	// Mutating the caller's slice must not reach the store.
	tags[0] = "mutated"
	again, _ := h.Store.GetByID(orig.ID)
	require.Equal(t, []string{"y", "z"}, again.Tags)
}

func TestUpdateEntry_SameInstantStillIncreases(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	orig, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "t"})
	got, _ := h.Store.UpdateEntry(ctx, orig.ID, memory.Patch{Content: strPtr("x")})
	require.True(t, got.UpdateTime.After(orig.UpdateTime))
}

func TestUpdateEntry_Unknown(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "t"})
	calls := h.Backend.SetCount()

	got, out := h.Store.UpdateEntry(ctx, "missing", memory.Patch{Title: strPtr("x")})
	require.Equal(t, memory.Entry{}, got)
	require.False(t, out.Applied)
	require.False(t, out.Persisted)
	require.NoError(t, out.Err)
	require.Equal(t, calls, h.Backend.SetCount(), "no write for unknown id")
	h.AssertNoEvent(event.EntryUpdated)
}

func TestDeleteEntry(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	a, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "B"})

	out := h.Store.DeleteEntry(ctx, a.ID)
	require.True(t, out.Applied)
	require.True(t, out.Persisted)

	_, ok := h.Store.GetByID(a.ID)
	require.False(t, ok)
	require.Equal(t, 1, h.Store.Count())
	h.AssertEventEmitted(event.EntryDeleted)
}

func TestDeleteEntry_Unknown(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	before := h.Store.Entries()
	calls := h.Backend.SetCount()

	out := h.Store.DeleteEntry(ctx, "nope")
	require.False(t, out.Applied)
	require.Equal(t, before, h.Store.Entries())
	require.Equal(t, calls, h.Backend.SetCount())
}

func TestTags_AddAndDedup(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	require.True(t, h.Store.AddTag(ctx, "go").Applied)
	calls := h.Backend.SetCount()

	require.False(t, h.Store.AddTag(ctx, "go").Applied)
	require.False(t, h.Store.AddTag(ctx, "").Applied)
	require.Equal(t, calls, h.Backend.SetCount(), "no write without a change")

	require.True(t, h.Store.AddTag(ctx, "rust").Applied)
	require.Equal(t, []string{"go", "rust"}, h.Store.Tags())
	require.Equal(t, 2, h.EventCount(event.TagAdded))
}

func TestRemoveTag_Cascades(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddTag(ctx, "x")
	e, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "n", Tags: []string{"a", "x", "b"}})
	other, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "m", Tags: []string{"c"}})

	out := h.Store.RemoveTag(ctx, "x")
	require.True(t, out.Applied)
	require.True(t, out.Persisted)

	require.NotContains(t, h.Store.Tags(), "x")
	got, _ := h.Store.GetByID(e.ID)
	require.Equal(t, []string{"a", "b"}, got.Tags)
	got, _ = h.Store.GetByID(other.ID)
	require.Equal(t, []string{"c"}, got.Tags)

	reloaded := h.Reload()
	got, _ = reloaded.GetByID(e.ID)
	require.Equal(t, []string{"a", "b"}, got.Tags)
	require.Empty(t, reloaded.Tags())
	h.AssertEventEmitted(event.TagRemoved)
}

func TestRemoveTag_PersistsWithoutReferences(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddTag(ctx, "lonely")
	calls := h.Backend.SetCount()

	out := h.Store.RemoveTag(ctx, "lonely")
	require.True(t, out.Applied)
	require.Greater(t, h.Backend.SetCount(), calls)
}

func TestRemoveTag_NotInRegistry(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	e, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "n", Tags: []string{"x"}})
	out := h.Store.RemoveTag(ctx, "x")
	require.False(t, out.Applied)

	got, _ := h.Store.GetByID(e.ID)
	require.Equal(t, []string{"x"}, got.Tags)
}

func TestAllTags_IndependentOfRegistry(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddTag(ctx, "registry-only")
	h.Store.AddEntry(ctx, memory.NewEntry{Tags: []string{"b", "a"}})
	h.Store.AddEntry(ctx, memory.NewEntry{Tags: []string{"a", "c"}})

	// Physical order is newest first: [a c], [b a].
	require.Equal(t, []string{"a", "c", "b"}, h.Store.AllTags())
	require.Equal(t, []string{"registry-only"}, h.Store.Tags())
}

func TestByTag(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddEntry(ctx, memory.NewEntry{Title: "one", Tags: []string{"work"}})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "two", Tags: []string{"home"}})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "three", Tags: []string{"work", "home"}})

	require.Equal(t, []string{"three", "one"}, titles(h.Store.ByTag("work")))
	require.Empty(t, h.Store.ByTag("Work"), "tag match is exact")
	require.NotNil(t, h.Store.ByTag("none"))
}

func TestSortedByRecency(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	a, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	h.Clock.Advance(time.Second)
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "B"})
	h.Clock.Advance(time.Second)
	h.Store.UpdateEntry(ctx, a.ID, memory.Patch{Content: strPtr("touched")})

	require.Equal(t, []string{"A", "B"}, titles(h.Store.SortedByRecency()))
	require.Equal(t, []string{"B", "A"}, titles(h.Store.Entries()))
}

func TestSearch(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddEntry(ctx, memory.NewEntry{Title: "Grocery list", Content: "milk"})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "Ideas", Content: "Build a MILK tracker"})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "Trip", Tags: []string{"Holiday"}})

	require.Equal(t, []string{"Ideas", "Grocery list"}, titles(h.Store.Search("Milk")))
	require.Equal(t, []string{"Trip"}, titles(h.Store.Search("holi")))
	require.Equal(t, []string{"Grocery list"}, titles(h.Store.Search("GROCERY")))
	require.Empty(t, h.Store.Search("absent"))
}

func TestSearch_EmptyEqualsSorted(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.Store.AddEntry(ctx, memory.NewEntry{Title: fmt.Sprintf("n%d", i)})
		if i%2 == 0 {
			h.Clock.Advance(time.Millisecond)
		}
	}
	require.Equal(t, h.Store.SortedByRecency(), h.Store.Search(""))
}

func TestScenario_AddAddSortDelete(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()
	require.Equal(t, 0, h.Store.Count())

	a, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "B"})
	require.Equal(t, []string{"B", "A"}, titles(h.Store.SortedByRecency()))

	require.True(t, h.Store.DeleteEntry(ctx, a.ID).Applied)
	require.Equal(t, 1, h.Store.Count())
}

func TestInitialize_RoundTrip(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddTag(ctx, "keep")
	h.Store.AddTag(ctx, "drop")
	a, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "A", Content: "alpha", Tags: []string{"keep", "drop"}})
	h.Clock.Advance(time.Second)
	b, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "B"})
	h.Store.UpdateEntry(ctx, a.ID, memory.Patch{Content: strPtr("alpha 2")})
	h.Store.RemoveTag(ctx, "drop")
	h.Store.AddEntry(ctx, memory.NewEntry{Title: "C"})
	h.Store.DeleteEntry(ctx, b.ID)

	reloaded := h.Reload()
	require.Equal(t, h.Store.Entries(), reloaded.Entries())
	require.Equal(t, h.Store.Tags(), reloaded.Tags())
	require.Equal(t, h.Store.SortedByRecency(), reloaded.SortedByRecency())
	require.False(t, reloaded.IsLoading())
	require.Equal(t, 2, h.EventCount(event.StoreLoaded))
}

func TestInitialize_EmptyStorage(t *testing.T) {
	h := testutil.NewTestHarness(t)

	require.Equal(t, 0, h.Store.Count())
	require.NotNil(t, h.Store.Entries())
	require.NotNil(t, h.Store.Tags())
	require.False(t, h.Store.IsLoading())
}

func TestInitialize_ReadFailureDefaultsEmpty(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	h.Store.AddTag(ctx, "t")

	h.Backend.SetFailures(false, true)
	reloaded := h.Reload()
	require.Equal(t, 0, reloaded.Count())
	require.Empty(t, reloaded.Tags())
	require.False(t, reloaded.IsLoading())
}

func TestInitialize_LoadingWhileReadsInFlight(t *testing.T) {
	tests := []struct {
		name      string
		failReads bool
		wantCount int
	}{
		{name: "reads succeed", wantCount: 1},
		{name: "all reads fail", failReads: true, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testutil.NewTestHarness(t)
			ctx := context.Background()
			h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
			h.Backend.SetFailures(false, tt.failReads)

			release := h.Backend.HoldGets()
			defer release()
			before := h.Backend.GetCount()

			s := h.NewStore()
			require.False(t, s.IsLoading(), "not loading before Initialize")

			done := make(chan struct{})
			go func() {
				s.Initialize(ctx)
				close(done)
			}()

			// Both reads are issued concurrently and held.
			require.Eventually(t, func() bool {
				return h.Backend.GetCount()-before == 2
			}, 2*time.Second, time.Millisecond)
			require.True(t, s.IsLoading(), "loading while reads are in flight")
			require.Equal(t, 1, h.EventCount(event.StoreLoaded), "no load event before reads finish")

			release()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				require.FailNow(t, "Initialize did not return after reads were released")
			}

			require.False(t, s.IsLoading())
			require.Equal(t, tt.wantCount, s.Count())
			require.NotNil(t, s.Tags())
			require.Equal(t, 2, h.EventCount(event.StoreLoaded))
		})
	}
}

func TestInitialize_PartialFailure(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Store.AddEntry(ctx, memory.NewEntry{Title: "A"})
	h.Store.AddTag(ctx, "t")

	keys := h.Store.Keys()
	h.Backend.FailKeys = map[string]bool{keys.Tags: true}
	h.Backend.SetFailures(false, true)

	reloaded := h.Reload()
	require.Equal(t, 1, reloaded.Count())
	require.Empty(t, reloaded.Tags())
}

func TestInitialize_CorruptPayload(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	keys := h.Store.Keys()
	require.NoError(t, h.Backend.MemoryBackend.Set(ctx, keys.Memories, []byte(`{"not":"a list"}`)))
	require.NoError(t, h.Backend.MemoryBackend.Set(ctx, keys.Tags, []byte(`["ok"]`)))

	reloaded := h.Reload()
	require.Equal(t, 0, reloaded.Count())
	require.Equal(t, []string{"ok"}, reloaded.Tags())
}

func TestPersistFailure_Outcome(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	h.Backend.SetFailures(true, false)
	e, out := h.Store.AddEntry(ctx, memory.NewEntry{Title: "unsaved"})
	require.True(t, out.Applied)
	require.False(t, out.Persisted)
	require.True(t, out.Unsaved())
	require.Error(t, out.Err)
	require.True(t, storage.IsStorageError(out.Err))
	require.ErrorIs(t, out.Err, testutil.ErrInjected)

	// The in-memory change stands.
	_, ok := h.Store.GetByID(e.ID)
	require.True(t, ok)
	h.AssertEventEmitted(event.StorePersistFailed)
	require.EqualValues(t, 1, h.Metrics.GetSummary()["persist_failures"])

	// The next successful write carries the earlier change too.
	h.Backend.SetFailures(false, false)
	_, out = h.Store.AddEntry(ctx, memory.NewEntry{Title: "saved"})
	require.True(t, out.Persisted)

	reloaded := h.Reload()
	require.Equal(t, []string{"saved", "unsaved"}, titles(reloaded.Entries()))
}

func TestQuotaExceeded_Outcome(t *testing.T) {
	backend := storage.NewMemoryBackend()
	adapter := storage.NewAdapter(backend, storage.WithLimit(64))
	s := memory.NewStore(adapter)
	ctx := context.Background()
	s.Initialize(ctx)

	_, out := s.AddEntry(ctx, memory.NewEntry{Title: "this entry is much too long to fit in sixty-four bytes"})
	require.True(t, out.Applied)
	require.False(t, out.Persisted)
	require.True(t, storage.IsStorageError(out.Err))
	require.Equal(t, 1, s.Count())
}

func TestConcurrentActions_StorageHoldsLatestState(t *testing.T) {
	h := testutil.NewTestHarness(t)
	h.Backend.Delay = time.Millisecond
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, out := h.Store.AddEntry(ctx, memory.NewEntry{Title: fmt.Sprintf("n%d", i)})
			assert.True(t, out.Persisted, "entry %d not persisted: %v", i, out.Err)
		}(i)
	}
	wg.Wait()

	reloaded := h.Reload()
	require.Equal(t, n, reloaded.Count())
	require.Equal(t, h.Store.Entries(), reloaded.Entries())
}

func TestViews_ReturnCopies(t *testing.T) {
	h := testutil.NewTestHarness(t)
	ctx := context.Background()

	e, _ := h.Store.AddEntry(ctx, memory.NewEntry{Title: "A", Tags: []string{"x"}})
	e.Tags[0] = "mutated"

	list := h.Store.Entries()
	list[0].Title = "mutated"
	list[0].Tags[0] = "mutated"

	got, _ := h.Store.GetByID(e.ID)
	require.Equal(t, "A", got.Title)
	require.Equal(t, []string{"x"}, got.Tags)
}

func TestStore_CustomKeysAndTitle(t *testing.T) {
	backend := storage.NewMemoryBackend()
	adapter := storage.NewAdapter(backend)
	keys := storage.KeysWithPrefix("custom_")
	s := memory.NewStore(adapter, memory.WithKeys(keys), memory.WithDefaultTitle("Note"))
	ctx := context.Background()
	s.Initialize(ctx)

	e, _ := s.AddEntry(ctx, memory.NewEntry{})
	require.Equal(t, "Note", e.Title)

	info, err := adapter.Info(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"custom_memories", "custom_tags"}, info.Keys)
}
