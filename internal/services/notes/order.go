package notes

import "slices"

// Order returns notes in display order: pinned notes first, most recently
// pinned leading, then unpinned notes in the order the store returned them.
// Ties keep their input order. The input slice is not modified.
func Order(in []Note) []Note {
	pinned := make([]Note, 0, len(in))
	unpinned := make([]Note, 0, len(in))
	for _, n := range in {
		if n.PinnedAt != nil {
			pinned = append(pinned, n)
		} else {
			unpinned = append(unpinned, n)
		}
	}

	slices.SortStableFunc(pinned, func(a, b Note) int {
		// descending
		return b.PinnedAt.Compare(*a.PinnedAt)
	})

	return append(pinned, unpinned...)
}
