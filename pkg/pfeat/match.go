package pfeat

import(
	"fmt"
	"math"
)

// BruteForce is the exhaustive matcher: every query is scored against
// every train descriptor. Slow and exact - the strategy of last resort
// once the approximate matcher has failed a frame.
type BruteForce struct{}

func (BruteForce)KNN2(query, train []Descriptor) ([][2]Neighbor, error) {
	if err := checkMatchable(query, train); err != nil {
		return nil, err
	}

	out := make([][2]Neighbor, len(query))
	for i, q := range query {
		out[i] = bestTwo(q, train, nil)
	}
	return out, nil
}

// bestTwo scans candidate indices (all of train when idxs is nil) and
// returns the two closest, ties going to the lower train index.
func bestTwo(q Descriptor, train []Descriptor, idxs []int) [2]Neighbor {
	b0 := Neighbor{TrainIdx: -1, Distance: math.Inf(1)}
	b1 := b0

	consider := func(idx int) {
		d := float64(q.DistanceTo(train[idx]))
		if d < b0.Distance {
			b1 = b0
			b0 = Neighbor{TrainIdx: idx, Distance: d}
		} else if d < b1.Distance {
			b1 = Neighbor{TrainIdx: idx, Distance: d}
		}
	}

	if idxs == nil {
		for idx := range train {
			consider(idx)
		}
	} else {
		for _, idx := range idxs {
			consider(idx)
		}
	}

	return [2]Neighbor{b0, b1}
}

func checkMatchable(query, train []Descriptor) error {
	if len(train) < 2 {
		return fmt.Errorf("2-NN matching needs >=2 train descriptors, got %d", len(train))
	}
	if len(query) > 0 && len(query[0]) != len(train[0]) {
		return fmt.Errorf("descriptor widths differ: query %d words, train %d", len(query[0]), len(train[0]))
	}
	return nil
}
