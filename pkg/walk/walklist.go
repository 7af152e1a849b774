package walk

// Flatten concatenates every list into one sequence
func (wl WalkList) Flatten() []int {
	var out []int
	for _, list := range wl {
		out = append(out, list...)
	}
	return out
}

// Clone returns a deep copy
func (wl WalkList) Clone() WalkList {
	if wl == nil {
		return nil
	}
	out := make(WalkList, len(wl))
	for i, list := range wl {
		out[i] = append([]int(nil), list...)
	}
	return out
}

// UniqueCount returns the number of distinct items across all lists
func (wl WalkList) UniqueCount() int {
	seen := make(map[int]struct{})
	for _, list := range wl {
		for _, item := range list {
			seen[item] = struct{}{}
		}
	}
	return len(seen)
}

// FirstVisits returns the list with repeated items removed, keeping first appearances
func FirstVisits(list []int) []int {
	seen := make(map[int]struct{}, len(list))
	out := make([]int, 0, len(list))
	for _, item := range list {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
