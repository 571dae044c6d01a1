// Package filters selects image tags using a user-supplied regular expression.
//
// A pattern matches a tag when it matches anywhere within it (search semantics, not full-string
// anchoring). The empty pattern matches every tag. An invalid pattern is a configuration error
// that aborts the current poll.
//
// Usage example:
//
//	tags, err := filters.FilterTags([]string{"1.0", "1.0-rc1"}, `^\d+\.\d+$`)
//	if errors.Is(err, filters.ErrInvalidTagFilter) {
//	    logrus.WithError(err).Error("Bad tag filter")
//	}
package filters
