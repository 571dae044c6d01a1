// Package sorter provides the numeric-aware ordering used to pick the latest image tag.
//
// Tags are compared after every run of decimal digits has been padded to a fixed width, so
// "1.100" sorts after "1.11", which sorts after "1.2", without parsing full semantic versions.
//
// Key components:
//   - ExpandNumbers: Rewrites digit runs into fixed-width zero-padded runs.
//   - Biggest: Picks the greater of two tags, preferring the second on ties.
//   - Latest: Folds a tag list through Biggest.
//   - SortByVersion: Sorts tag slices in place in ascending numeric-aware order.
//
// Usage example:
//
//	latest := sorter.Latest([]string{"1.2", "1.11", "1.100"}) // "1.100"
//
//	tags := []string{"1.100", "1.2", "1.11"}
//	sorter.SortByVersion(tags) // [1.2 1.11 1.100]
package sorter
