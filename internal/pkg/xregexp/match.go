// Package xregexp matches strings against patterns that are either literals or anchored
// regular expressions. Compiled patterns are cached for the life of the process.
package xregexp

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/looplj/visgate/internal/pkg/xmap"
)

// MatchTimeout bounds a single regular expression match.
const MatchTimeout = 100 * time.Millisecond

type pattern struct {
	regex   *regexp2.Regexp
	literal bool
	invalid bool
}

var cache = xmap.New[string, *pattern]()

// IsPattern reports whether s would be treated as a regular expression.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, "*?+[]{}()^$.|\\")
}

// Valid reports whether p is a literal or a compilable regular expression.
func Valid(p string) bool {
	return !compile(p).invalid
}

// MatchString reports whether str matches p as a whole. Invalid patterns and matches that
// time out never match.
func MatchString(p, str string) bool {
	if p == str {
		return true
	}

	c := compile(p)

	switch {
	case c.invalid:
		return false
	case c.literal:
		return p == str
	}

	match, err := c.regex.MatchString(str)

	return err == nil && match
}

// MatchAny reports whether any of strs matches p.
func MatchAny(p string, strs []string) bool {
	for _, s := range strs {
		if MatchString(p, s) {
			return true
		}
	}

	return false
}

func compile(p string) *pattern {
	if c, ok := cache.Load(p); ok {
		return c
	}

	c := &pattern{}

	if !IsPattern(p) {
		c.literal = true
	} else {
		regex, err := regexp2.Compile(anchor(p), regexp2.None)
		if err != nil {
			c.invalid = true
		} else {
			regex.MatchTimeout = MatchTimeout
			c.regex = regex
		}
	}

	c, _ = cache.LoadOrStore(p, c)

	return c
}

// anchor makes p match whole strings. Inline flags such as (?i) may precede ^. The body
// is always grouped so a top-level alternation cannot escape the anchors.
func anchor(p string) string {
	flags, body := "", p
	if strings.HasPrefix(body, "(?") {
		if end := strings.IndexByte(body, ')'); end > 0 && isFlags(body[2:end]) {
			flags, body = body[:end+1], body[end+1:]
		}
	}

	body = strings.TrimPrefix(body, "^")
	if strings.HasSuffix(body, "$") && !strings.HasSuffix(body, `\$`) {
		body = strings.TrimSuffix(body, "$")
	}

	return flags + "^(?:" + body + ")$"
}

func isFlags(s string) bool {
	return s != "" && strings.Trim(s, "imsnx") == ""
}
