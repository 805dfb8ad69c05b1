package sanitizer

// NormalizeIDs drops non-positive and repeated ids, keeping first-seen order.
func NormalizeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}

	seen := make(map[int64]bool, len(ids))
	result := make([]int64, 0, len(ids))

	for _, id := range ids {
		if id <= 0 {
			continue
		}

		if seen[id] {
			continue
		}

		seen[id] = true
		result = append(result, id)
	}

	return result
}
