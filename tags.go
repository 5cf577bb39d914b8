package nbgallery

import "sort"

// DefaultRelatedLimit caps related notebooks on a detail page.
const DefaultRelatedLimit = 3

// CollectTags returns the sorted, distinct tags across index. An empty tag
// appears only if some record carries one.
func CollectTags(index CollectionIndex) []string {
	seen := make(map[string]struct{})
	for _, rec := range index {
		for _, tag := range rec.Tags {
			seen[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Related returns up to limit other records sharing at least one tag with
// rec, in index order. Records are told apart by filename. A limit <= 0
// selects DefaultRelatedLimit.
func Related(index CollectionIndex, rec NotebookRecord, limit int) []NotebookRecord {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if len(rec.Tags) == 0 {
		return nil
	}

	own := make(map[string]struct{}, len(rec.Tags))
	for _, tag := range rec.Tags {
		own[tag] = struct{}{}
	}

	var related []NotebookRecord
	for _, other := range index {
		if other.Filename == rec.Filename {
			continue
		}
		if sharesTag(own, other.Tags) {
			related = append(related, other)
			if len(related) == limit {
				break
			}
		}
	}
	return related
}

func sharesTag(own map[string]struct{}, tags []string) bool {
	for _, tag := range tags {
		if _, ok := own[tag]; ok {
			return true
		}
	}
	return false
}
