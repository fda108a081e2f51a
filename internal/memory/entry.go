package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a single note in the warehouse.
type Entry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

// NewEntry is the caller-supplied data for AddEntry. Empty fields take
// their defaults.
type NewEntry struct {
	Title   string
	Content string
	Tags    []string
}

// Patch holds the fields to overwrite in UpdateEntry. Nil fields are left
// unchanged.
type Patch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// IsEmpty reports whether the patch changes no field.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil
}

// HasTag reports whether the entry carries tag (exact match).
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// matches is the case-insensitive search predicate; kw must be lowercase.
func (e Entry) matches(kw string) bool {
	if strings.Contains(strings.ToLower(e.Title), kw) ||
		strings.Contains(strings.ToLower(e.Content), kw) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), kw) {
			return true
		}
	}
	return false
}

func (e Entry) clone() Entry {
	e.Tags = cloneStrings(e.Tags)
	return e
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out
}

// newID returns a random (version 4) UUID in lowercase hex.
func newID() string {
	return uuid.NewString()
}
