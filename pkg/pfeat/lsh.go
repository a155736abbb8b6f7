package pfeat

import(
	"fmt"
	"math/rand"
	"sort"
)

// An IndexedMatcher approximates 2-NN search with bit-sampling
// locality hashes: each table keys train descriptors by a small random
// subset of their bits, so similar descriptors usually collide in at
// least one table. Colliding candidates are then scored exactly. When
// a query collides with fewer than two candidates it falls back to a
// full scan, so the two-neighbor contract holds regardless.
type IndexedMatcher struct {
	Tables int  // hash tables; more tables, better recall
	Bits   int  // sampled bits per table, at most 64
}

func NewIndexedMatcher() *IndexedMatcher {
	return &IndexedMatcher{Tables: 8, Bits: 16}
}

func (im *IndexedMatcher)KNN2(query, train []Descriptor) ([][2]Neighbor, error) {
	if err := checkMatchable(query, train); err != nil {
		return nil, err
	}
	if im.Tables < 1 || im.Bits < 1 || im.Bits > 64 {
		return nil, fmt.Errorf("bad index shape: %d tables of %d bits", im.Tables, im.Bits)
	}

	// The sampled bit positions are drawn from a fixed seed: the same
	// descriptor sets always produce the same match set.
	rng := rand.New(rand.NewSource(1))
	nbits := len(train[0]) * 64

	masks := make([][]int, im.Tables)
	tables := make([]map[uint64][]int, im.Tables)
	for t:=0; t<im.Tables; t++ {
		masks[t] = rng.Perm(nbits)[:im.Bits]
		tables[t] = map[uint64][]int{}
		for idx, d := range train {
			key := sampleBits(d, masks[t])
			tables[t][key] = append(tables[t][key], idx)
		}
	}

	out := make([][2]Neighbor, len(query))
	for qi, q := range query {
		seen := map[int]bool{}
		candidates := []int{}
		for t:=0; t<im.Tables; t++ {
			for _, idx := range tables[t][sampleBits(q, masks[t])] {
				if !seen[idx] {
					seen[idx] = true
					candidates = append(candidates, idx)
				}
			}
		}

		if len(candidates) < 2 {
			out[qi] = bestTwo(q, train, nil)
			continue
		}

		sort.Ints(candidates)  // stable candidate order, stable ties
		out[qi] = bestTwo(q, train, candidates)
	}

	return out, nil
}

func sampleBits(d Descriptor, positions []int) uint64 {
	key := uint64(0)
	for i, p := range positions {
		if d[p/64]>>(uint(p%64))&1 == 1 {
			key |= 1 << uint(i)
		}
	}
	return key
}
