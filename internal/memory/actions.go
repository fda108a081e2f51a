package memory

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cadre-oss/warehouse/internal/event"
	"github.com/cadre-oss/warehouse/internal/telemetry"
)

// Initialize loads entries and tags from storage, reading both keys
// concurrently. A missing or unreadable key loads as empty. Initialize
// never fails and always clears the loading flag.
func (s *Store) Initialize(ctx context.Context) {
	ctx, _ = telemetry.StartAction(ctx, "initialize")
	log := s.logger.WithTrace(ctx)

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	var entries []Entry
	var tags []string

	// Adapter.Get does not fail; the group only joins the two reads.
	var g errgroup.Group
	g.Go(func() error {
		if !s.adapter.Get(ctx, s.keys.Memories, &entries) {
			entries = nil
		}
		return nil
	})
	g.Go(func() error {
		if !s.adapter.Get(ctx, s.keys.Tags, &tags) {
			tags = nil
		}
		return nil
	})
	_ = g.Wait()

	if entries == nil {
		entries = []Entry{}
	}
	if tags == nil {
		tags = []string{}
	}
	for i := range entries {
		if entries[i].Tags == nil {
			entries[i].Tags = []string{}
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.tags = tags
	s.loading = false
	for _, e := range entries {
		if e.UpdateTime.After(s.lastNow) {
			s.lastNow = e.UpdateTime
		}
	}
	s.mu.Unlock()

	s.metrics.IncLoads()
	log.Debug("Store loaded", "entries", len(entries), "tags", len(tags))
	s.emit(ctx, event.StoreLoaded, map[string]interface{}{
		"entries": len(entries),
		"tags":    len(tags),
	})
}

// AddEntry creates an entry from data and inserts it at the front.
func (s *Store) AddEntry(ctx context.Context, data NewEntry) (Entry, Outcome) {
	ctx, _ = telemetry.StartAction(ctx, "add_entry")

	s.mu.Lock()
	now := s.now()
	e := Entry{
		ID:         newID(),
		Title:      data.Title,
		Content:    data.Content,
		Tags:       cloneStrings(data.Tags),
		CreateTime: now,
		UpdateTime: now,
	}
	if e.Title == "" {
		e.Title = s.defaultTitle
	}
	s.entries = append([]Entry{e}, s.entries...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.IncEntriesAdded()
	s.logger.WithTrace(ctx).Debug("Entry added", "id", e.ID, "title", e.Title)
	s.emit(ctx, event.EntryAdded, map[string]interface{}{"id": e.ID, "title": e.Title})

	return e.clone(), s.commit(ctx, snap)
}

// UpdateEntry overwrites the non-nil patch fields of the entry with id and
// refreshes its UpdateTime. An unknown id returns a zero Entry and an
// Outcome that is not Applied.
func (s *Store) UpdateEntry(ctx context.Context, id string, patch Patch) (Entry, Outcome) {
	ctx, _ = telemetry.StartAction(ctx, "update_entry")
	ctx = telemetry.TagEntry(ctx, id)

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return Entry{}, notApplied()
	}

	e := s.entries[i]
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Content != nil {
		e.Content = *patch.Content
	}
	if patch.Tags != nil {
		e.Tags = cloneStrings(*patch.Tags)
	}
	e.UpdateTime = s.now()
	s.entries[i] = e
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.IncEntriesUpdated()
	s.logger.WithTrace(ctx).Debug("Entry updated", "id", id)
	s.emit(ctx, event.EntryUpdated, map[string]interface{}{"id": id})

	return e.clone(), s.commit(ctx, snap)
}

// DeleteEntry removes the entry with id. Storage is written only when an
// entry was removed.
func (s *Store) DeleteEntry(ctx context.Context, id string) Outcome {
	ctx, _ = telemetry.StartAction(ctx, "delete_entry")
	ctx = telemetry.TagEntry(ctx, id)

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return notApplied()
	}
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.IncEntriesDeleted()
	s.logger.WithTrace(ctx).Debug("Entry deleted", "id", id)
	s.emit(ctx, event.EntryDeleted, map[string]interface{}{"id": id})

	return s.commit(ctx, snap)
}

// AddTag adds tag to the registry if it is non-empty and not yet present.
func (s *Store) AddTag(ctx context.Context, tag string) Outcome {
	ctx, _ = telemetry.StartAction(ctx, "add_tag")

	s.mu.Lock()
	if tag == "" || containsString(s.tags, tag) {
		s.mu.Unlock()
		return notApplied()
	}
	s.tags = append(s.tags, tag)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.IncTagsAdded()
	s.emit(ctx, event.TagAdded, map[string]interface{}{"tag": tag})

	return s.commit(ctx, snap)
}

// RemoveTag removes tag from the registry and strips it from every entry.
// Nothing happens if the registry does not hold tag, even when entries
// reference it.
func (s *Store) RemoveTag(ctx context.Context, tag string) Outcome {
	ctx, _ = telemetry.StartAction(ctx, "remove_tag")

	s.mu.Lock()
	i := indexString(s.tags, tag)
	if i < 0 {
		s.mu.Unlock()
		return notApplied()
	}
	s.tags = append(s.tags[:i:i], s.tags[i+1:]...)

	stripped := 0
	for j := range s.entries {
		if !s.entries[j].HasTag(tag) {
			continue
		}
		kept := make([]string, 0, len(s.entries[j].Tags))
		for _, t := range s.entries[j].Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		s.entries[j].Tags = kept
		stripped++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.IncTagsRemoved()
	s.logger.WithTrace(ctx).Debug("Tag removed", "tag", tag, "entries", stripped)
	s.emit(ctx, event.TagRemoved, map[string]interface{}{"tag": tag, "entries": stripped})

	return s.commit(ctx, snap)
}

func indexString(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func containsString(s []string, v string) bool {
	return indexString(s, v) >= 0
}
