package analytics

import "sort"

// counter tallies keys and remembers first-seen order so ranking ties are
// broken by insertion.
type counter struct {
	index  map[string]int
	keys   []string
	counts []int
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(key string) {
	if i, ok := c.index[key]; ok {
		c.counts[i]++
		return
	}
	c.index[key] = len(c.keys)
	c.keys = append(c.keys, key)
	c.counts = append(c.counts, 1)
}

type entry struct {
	Key   string
	Count int
}

// top returns up to n entries by descending count, ties in first-seen order.
// n <= 0 returns all entries.
func (c *counter) top(n int) []entry {
	order := make([]int, len(c.keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.counts[order[a]] > c.counts[order[b]]
	})
	if n > 0 && len(order) > n {
		order = order[:n]
	}
	out := make([]entry, len(order))
	for i, idx := range order {
		out[i] = entry{Key: c.keys[idx], Count: c.counts[idx]}
	}
	return out
}

func (c *counter) topKeys(n int) []string {
	entries := c.top(n)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
