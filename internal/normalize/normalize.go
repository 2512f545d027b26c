// Package normalize strips ornamental spinner/animation tokens from
// terminal snapshots and hashes the result, the normalization spec.md §4.2
// specifies: "without normalization, ornamental progress indicators would
// make every screen look different and the stability gate would never
// fire."
package normalize

import (
	"hash/fnv"
	"strings"
)

// SpinnerTokens is the fixed set of animation/spinner markers spec.md §4.2
// names. Closed set, not a regex — matches the spec's literal enumeration.
var SpinnerTokens = []string{"Flowing", "Brewing", "Thinking", "Running…", "tokens"}

// PromptPlaceholder replaces a user-input-in-progress line (spec.md §4.4:
// "lines beginning with the prompt glyph followed by >=10 characters").
const PromptPlaceholder = "[user is typing…]"

// Screen strips spinner-token lines, trims surrounding whitespace on each
// line, and drops blank lines produced by stripping. Idempotent:
// Screen(Screen(x)) == Screen(x), since a second pass finds nothing left to
// strip or trim.
func Screen(snapshot string) string {
	lines := strings.Split(snapshot, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || containsAny(trimmed, SpinnerTokens) {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// Hash returns the 64-bit FNV-1a hash of s, used as the stability state's
// content hash (spec.md §3, §4.2).
func Hash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// TailLines returns at most the last n lines of snapshot, used for the
// classifier's 30-line truncation (spec.md §4.3) and the delivery
// pipeline's 15-line truncation (spec.md §4.7).
func TailLines(snapshot string, n int) string {
	if n <= 0 {
		return ""
	}
	lines := strings.Split(snapshot, "\n")
	if len(lines) <= n {
		return snapshot
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// RewriteInProgressInput rewrites lines that begin with promptGlyph followed
// by at least 10 more characters into PromptPlaceholder (spec.md §4.4): the
// extractor should not treat an unfinished keystroke as the user's final
// input.
func RewriteInProgressInput(snapshot, promptGlyph string) string {
	if promptGlyph == "" {
		return snapshot
	}
	lines := strings.Split(snapshot, "\n")
	for i, line := range lines {
		rest, ok := strings.CutPrefix(line, promptGlyph)
		if ok && len(strings.TrimSpace(rest)) >= 10 {
			lines[i] = promptGlyph + " " + PromptPlaceholder
		}
	}
	return strings.Join(lines, "\n")
}
