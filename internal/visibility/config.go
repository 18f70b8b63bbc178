package visibility

import (
	"errors"
	"fmt"
)

const (
	CheckerAllow  = "allow"
	CheckerDeny   = "deny"
	CheckerRules  = "rules"
	CheckerGrants = "grants"
	CheckerRemote = "remote"
)

type Config struct {
	// Checker selects the implementation, defaults to grants.
	Checker string       `conf:"checker" yaml:"checker" json:"checker"`
	Rules   RulesConfig  `conf:"rules" yaml:"rules" json:"rules"`
	Remote  RemoteConfig `conf:"remote" yaml:"remote" json:"remote"`
}

// NewChecker builds the checker selected by cfg. grants is only used by the grants checker.
func NewChecker(cfg Config, grants GrantLookup) (Checker, error) {
	switch cfg.Checker {
	case CheckerAllow:
		return AllowAll(), nil
	case CheckerDeny:
		return DenyAll(), nil
	case CheckerRules:
		rules, err := NewRules(cfg.Rules)
		if err != nil {
			return nil, err
		}

		return rules, nil
	case CheckerRemote:
		remote, err := NewRemote(cfg.Remote, nil)
		if err != nil {
			return nil, err
		}

		return remote, nil
	case CheckerGrants, "":
		if grants == nil {
			return nil, errors.New("visibility: grants checker needs a grant lookup")
		}

		return NewGrants(grants), nil
	default:
		return nil, fmt.Errorf("visibility: unknown checker %q", cfg.Checker)
	}
}
