package visibility

import (
	"context"
	"fmt"
	"strings"

	"github.com/looplj/visgate/internal/authz"
	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/pkg/xregexp"
)

const (
	// GrantAll lets a subject see every restricted item.
	GrantAll = "*"
	// GrantTagPrefix prefixes tag grants, e.g. "tag:finance".
	GrantTagPrefix = "tag:"
	// GrantPatternPrefix marks an id or tag grant as a regular expression, e.g. "~report-.*".
	GrantPatternPrefix = "~"
)

// GrantLookup returns the grants held by subject.
type GrantLookup interface {
	Grants(ctx context.Context, subject string) ([]string, error)
}

// Grants decides from the item's visibility, its owner and the subject's grants:
//
//   - system principals see everything
//   - public items are visible to everyone
//   - anonymous principals see nothing else
//   - owners see their own items
//   - restricted items need a matching grant: the item id, tag:<tag> or *
//   - ids and tags in grants compare exactly unless prefixed with ~, which makes the
//     rest a regular expression matching the whole value, e.g. "~report-.*" or "tag:~fin.*"
//   - private items are visible to their owner only
type Grants struct {
	lookup GrantLookup
}

var _ Checker = (*Grants)(nil)

func NewGrants(lookup GrantLookup) *Grants {
	return &Grants{lookup: lookup}
}

func (g *Grants) CanSee(ctx context.Context, it item.Item) (bool, error) {
	p := authz.PrincipalOrAnonymous(ctx)

	switch {
	case p.IsSystem():
		return true, nil
	case it.Visibility == item.VisibilityPublic:
		return true, nil
	case p.IsAnonymous():
		return false, nil
	case it.Owner != "" && it.Owner == p.Subject:
		return true, nil
	case it.Visibility != item.VisibilityRestricted:
		return false, nil
	}

	grants, err := g.lookup.Grants(ctx, p.Subject)
	if err != nil {
		return false, fmt.Errorf("%w: grants of %s: %w", ErrCheckFailed, p, err)
	}

	return matchGrants(grants, it), nil
}

func matchGrants(grants []string, it item.Item) bool {
	for _, grant := range grants {
		switch {
		case grant == GrantAll:
			return true
		case strings.HasPrefix(grant, GrantTagPrefix):
			tag := strings.TrimPrefix(grant, GrantTagPrefix)
			for _, t := range it.Tags {
				if matchValue(tag, t) {
					return true
				}
			}
		case matchValue(grant, it.ID):
			return true
		}
	}

	return false
}

func matchValue(grant, value string) bool {
	if p, ok := strings.CutPrefix(grant, GrantPatternPrefix); ok {
		return xregexp.MatchString(p, value)
	}

	return grant == value
}
