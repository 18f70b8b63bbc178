package visibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"

	"github.com/looplj/visgate/internal/authz"
	"github.com/looplj/visgate/internal/item"
)

// Effect is what a matching rule decides.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

func (e Effect) valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Rule is a boolean expression over `principal` and `item`, for example
//
//	item.visibility == "public" || item.owner == principal.subject
//	"auditor" in principal.roles && "finance" in item.tags
type Rule struct {
	Name   string `conf:"name" yaml:"name" json:"name"`
	Effect Effect `conf:"effect" yaml:"effect" json:"effect"`
	Expr   string `conf:"expr" yaml:"expr" json:"expr"`
}

type RulesConfig struct {
	// DefaultEffect applies when no rule matches. Empty means deny.
	DefaultEffect Effect `conf:"default_effect" yaml:"default_effect" json:"default_effect"`
	Rules         []Rule `conf:"rules" yaml:"rules" json:"rules"`
}

type ruleEnv struct {
	Principal rulePrincipal `expr:"principal"`
	Item      ruleItem      `expr:"item"`
}

type rulePrincipal struct {
	Type    string   `expr:"type"`
	Subject string   `expr:"subject"`
	Roles   []string `expr:"roles"`
}

type ruleItem struct {
	ID         string    `expr:"id"`
	Owner      string    `expr:"owner"`
	Visibility string    `expr:"visibility"`
	Tags       []string  `expr:"tags"`
	CreatedAt  time.Time `expr:"created_at"`
}

func newRuleEnv(p authz.Principal, it item.Item) ruleEnv {
	return ruleEnv{
		Principal: rulePrincipal{
			Type:    p.Type.String(),
			Subject: p.Subject,
			Roles:   p.Roles,
		},
		Item: ruleItem{
			ID:         it.ID,
			Owner:      it.Owner,
			Visibility: string(it.Visibility),
			Tags:       it.Tags,
			CreatedAt:  it.CreatedAt,
		},
	}
}

type compiledRule struct {
	name    string
	effect  Effect
	program *vm.Program
}

// Rules evaluates an ordered rule list. The first rule whose expression is true decides.
type Rules struct {
	rules    []compiledRule
	fallback Effect
}

var _ Checker = (*Rules)(nil)

// NewRules compiles every rule up front, so a bad expression fails at startup rather
// than on the first request.
func NewRules(cfg RulesConfig) (*Rules, error) {
	fallback := cfg.DefaultEffect
	if fallback == "" {
		fallback = EffectDeny
	}

	if !fallback.valid() {
		return nil, fmt.Errorf("visibility: invalid default effect %q", fallback)
	}

	var errs []error

	compiled := make([]compiledRule, 0, len(cfg.Rules))

	for i, r := range cfg.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule[%d]", i)
		}

		if !r.Effect.valid() {
			errs = append(errs, fmt.Errorf("%s: invalid effect %q", name, r.Effect))
			continue
		}

		program, err := expr.Compile(r.Expr, expr.Env(ruleEnv{}), expr.AsBool())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		compiled = append(compiled, compiledRule{
			name:    name,
			effect:  r.Effect,
			program: program,
		})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("visibility: compile rules: %w", errors.Join(errs...))
	}

	return &Rules{rules: compiled, fallback: fallback}, nil
}

func (r *Rules) CanSee(ctx context.Context, it item.Item) (bool, error) {
	env := newRuleEnv(authz.PrincipalOrAnonymous(ctx), it)

	for _, rule := range r.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			return false, fmt.Errorf("%w: rule %s on item %s: %w", ErrCheckFailed, rule.name, it.ID, err)
		}

		matched, err := cast.ToBoolE(out)
		if err != nil {
			return false, fmt.Errorf("%w: rule %s on item %s: %w", ErrCheckFailed, rule.name, it.ID, err)
		}

		if matched {
			return rule.effect == EffectAllow, nil
		}
	}

	return r.fallback == EffectAllow, nil
}
