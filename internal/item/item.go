package item

import (
	"slices"
	"time"
)

// Visibility is the audience an item was published for. Checkers interpret it;
// the write pipeline never looks at it.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityPrivate    Visibility = "private"
	VisibilityRestricted Visibility = "restricted"
)

// Item is the record being filtered. Items are values: a checker receives its own
// copy and can neither observe nor cause mutation of the request's collection.
type Item struct {
	ID         string     `conf:"id" yaml:"id" json:"id"`
	Owner      string     `conf:"owner" yaml:"owner" json:"owner"`
	Visibility Visibility `conf:"visibility" yaml:"visibility" json:"visibility"`
	Tags       []string   `conf:"tags" yaml:"tags" json:"tags,omitempty"`
	Deleted    bool       `conf:"deleted" yaml:"deleted" json:"deleted"`
	CreatedAt  time.Time  `conf:"created_at" yaml:"created_at" json:"created_at"`
}

// IsDeleted reports whether the item is soft-deleted.
func (i Item) IsDeleted() bool {
	return i.Deleted
}

// Clone returns a deep copy.
func (i Item) Clone() Item {
	i.Tags = slices.Clone(i.Tags)
	return i
}

// HasTag reports whether the item carries tag.
func (i Item) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}
