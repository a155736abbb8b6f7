package pfeat

import(
	"testing"

	"github.com/stretchr/testify/require"

	"panoweave/pkg/pmath"
)

func TestFilterMatchesRatio(t *testing.T) {
	queryKps := []KeyPoint{
		{X: 10, Y: 11},
		{X: 20, Y: 21},
		{X: 30, Y: 31},
		{X: 40, Y: 41},
		{X: 50, Y: 51},
	}
	trainKps := []KeyPoint{
		{X: 110, Y: 111},
		{X: 120, Y: 121},
	}

	nns := [][2]Neighbor{
		{{TrainIdx: 0, Distance: 10}, {TrainIdx: 1, Distance: 20}},  // 10 < 15: keep
		{{TrainIdx: 1, Distance: 18}, {TrainIdx: 0, Distance: 20}},  // 18 >= 15: ambiguous
		{{TrainIdx: 0, Distance: 0}, {TrainIdx: 1, Distance: 0}},    // 0 >= 0: ambiguous
		{{TrainIdx: -1, Distance: 0}, {TrainIdx: -1, Distance: 0}},  // no valid neighbors
		{{TrainIdx: 1, Distance: 4}, {TrainIdx: 0, Distance: 40}},   // 4 < 30: keep
	}

	got := FilterMatches(queryKps, trainKps, nns, 0.75)

	want := []pmath.Correspondence{
		{X1: 10, Y1: 11, X2: 110, Y2: 111},
		{X1: 50, Y1: 51, X2: 120, Y2: 121},
	}
	require.Equal(t, want, got)
}

func TestFilterMatchesEmpty(t *testing.T) {
	require.Empty(t, FilterMatches(nil, nil, nil, 0.75))
}
