package utils

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// CompileGlobPatterns compiles the allow/disallow path globs of a site crawl.
// Patterns are matched against a path relative to the site root, so they must not start with '/';
// the lone pattern "/" (the index page) is the exception. Without separators '*' also matches '/'.
// An empty list, a blank pattern or an uncompilable one is an ErrInvalidPaths.
func CompileGlobPatterns(patterns []string) ([]glob.Glob, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: the provided paths cannot be empty", ErrInvalidPaths)
	}
	compiled := make([]glob.Glob, 0, len(patterns))
	for i, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			return nil, fmt.Errorf("%w: pattern #%d is blank", ErrInvalidPaths, i+1)
		}
		if pattern != "/" && strings.HasPrefix(pattern, "/") {
			return nil, fmt.Errorf("%w: pattern #%d ('%s') must not start with '/'", ErrInvalidPaths, i+1, pattern)
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern #%d ('%s'): %v", ErrInvalidPaths, i+1, pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// MatchAnyGlob reports whether s matches at least one of the patterns
func MatchAnyGlob(patterns []glob.Glob, s string) bool {
	for _, g := range patterns {
		if g.Match(s) {
			return true
		}
	}
	return false
}
