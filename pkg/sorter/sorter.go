package sorter

import "sort"

// SortByVersion sorts tags in place in ascending numeric-aware order.
// Tags with equal expansions keep their input order.
func SortByVersion(tags []string) {
	expanded := make([]string, len(tags))
	for i, tag := range tags {
		expanded[i] = ExpandNumbers(tag)
	}

	sort.Stable(byVersion{tags: tags, expanded: expanded})
}

// byVersion implements sort.Interface over pre-expanded tags.
type byVersion struct {
	tags     []string
	expanded []string
}

func (b byVersion) Len() int { return len(b.tags) }

func (b byVersion) Swap(i, j int) {
	b.tags[i], b.tags[j] = b.tags[j], b.tags[i]
	b.expanded[i], b.expanded[j] = b.expanded[j], b.expanded[i]
}

func (b byVersion) Less(i, j int) bool { return b.expanded[i] < b.expanded[j] }
