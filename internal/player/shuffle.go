package player

import "math/rand/v2"

// ShuffleOrder returns a uniform random permutation of [0, n). A nil r uses
// the global source.
func ShuffleOrder(n int, r *rand.Rand) []int {
	if n <= 0 {
		return nil
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	swap := func(i, j int) { order[i], order[j] = order[j], order[i] }
	if r != nil {
		r.Shuffle(n, swap)
	} else {
		rand.Shuffle(n, swap)
	}
	return order
}

func positionOf(order []int, index int) int {
	for pos, i := range order {
		if i == index {
			return pos
		}
	}
	return -1
}
