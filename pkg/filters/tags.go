package filters

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
)

// MatchAll is the pattern used when no tag filter is configured.
const MatchAll = ".*"

// ErrInvalidTagFilter indicates the configured tag filter is not a valid regular expression.
var ErrInvalidTagFilter = errors.New("invalid tag filter")

// CompileTagFilter compiles a tag filter pattern, treating the empty pattern as MatchAll.
//
// Parameters:
//   - pattern: Regular expression in RE2 syntax.
//
// Returns:
//   - *regexp.Regexp: Compiled pattern.
//   - error: Wraps ErrInvalidTagFilter and quotes the pattern if it does not compile.
func CompileTagFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = MatchAll
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidTagFilter, pattern, err)
	}

	return re, nil
}

// FilterTags returns the tags matched by pattern, preserving their order.
//
// Parameters:
//   - tags: Tags as returned by the registry.
//   - pattern: Tag filter; empty matches everything.
//
// Returns:
//   - []string: Matching tags, never nil.
//   - error: Wraps ErrInvalidTagFilter when the pattern does not compile.
func FilterTags(tags []string, pattern string) ([]string, error) {
	re, err := CompileTagFilter(pattern)
	if err != nil {
		logrus.WithError(err).WithField("pattern", pattern).Debug("Failed to compile tag filter")

		return nil, err
	}

	matching := make([]string, 0, len(tags))

	for _, tag := range tags {
		if re.MatchString(tag) {
			matching = append(matching, tag)
		}
	}

	logrus.WithFields(logrus.Fields{
		"pattern":  re.String(),
		"total":    len(tags),
		"matching": len(matching),
	}).Debug("Filtered tags")

	return matching, nil
}
