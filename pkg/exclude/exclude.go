// Package exclude implements the glob-style exclusion matcher used to prune
// files and directories from the upload walk.
package exclude

import "strings"

// DefaultPatterns is the built-in exclusion list applied before any
// user-supplied patterns.
var DefaultPatterns = []string{
	".git", ".svn", ".hg", "Thumbs.db", "desktop.ini", ".DS_Store",
	"*.tmp", "*.temp", "*.swp", "*~",
}

type rule struct {
	pattern    string // lowercased, original form (kept for diagnostics)
	hasSlash   bool
	segmentPat string // the pattern split on "/" for full-path matches is just pattern itself
}

// Set is a compiled collection of exclusion patterns.
type Set struct {
	rules []rule
}

// BuildDefaultRules returns the default pattern list with user patterns appended.
func BuildDefaultRules(userPatterns []string) []string {
	out := make([]string, 0, len(DefaultPatterns)+len(userPatterns))
	out = append(out, DefaultPatterns...)
	out = append(out, userPatterns...)
	return out
}

// NewSet compiles a pattern list into a matchable Set.
func NewSet(patterns []string) *Set {
	s := &Set{rules: make([]rule, 0, len(patterns))}
	for _, p := range patterns {
		lp := strings.ToLower(p)
		s.rules = append(s.rules, rule{
			pattern:    lp,
			hasSlash:   strings.Contains(lp, "/"),
			segmentPat: lp,
		})
	}
	return s
}

// Matches reports whether relPath (forward-slash, any case) should be
// excluded. Patterns containing "/" are matched against the full relative
// path; patterns without "/" are matched against each path segment.
func (s *Set) Matches(relPath string) bool {
	if s == nil || len(s.rules) == 0 {
		return false
	}
	lowerPath := strings.ToLower(strings.ReplaceAll(relPath, "\\", "/"))
	lowerPath = strings.TrimPrefix(lowerPath, "/")
	segments := strings.Split(lowerPath, "/")

	for _, r := range s.rules {
		if r.hasSlash {
			if globMatch(r.segmentPat, lowerPath) {
				return true
			}
			continue
		}
		for _, seg := range segments {
			if globMatch(r.segmentPat, seg) {
				return true
			}
		}
	}
	return false
}

// globMatch implements a backtracking matcher supporting only '*' (any run,
// including empty) and '?' (exactly one character). Both inputs are assumed
// already case-folded.
func globMatch(pattern, s string) bool {
	var pIdx, sIdx int
	var starIdx = -1
	var matchIdx int

	for sIdx < len(s) {
		if pIdx < len(pattern) && (pattern[pIdx] == '?' || pattern[pIdx] == s[sIdx]) {
			pIdx++
			sIdx++
			continue
		}
		if pIdx < len(pattern) && pattern[pIdx] == '*' {
			starIdx = pIdx
			matchIdx = sIdx
			pIdx++
			continue
		}
		if starIdx != -1 {
			pIdx = starIdx + 1
			matchIdx++
			sIdx = matchIdx
			continue
		}
		return false
	}
	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(pattern)
}
