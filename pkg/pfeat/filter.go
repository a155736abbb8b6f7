package pfeat

import(
	"panoweave/pkg/pmath"
)

// FilterMatches applies the ratio test to raw 2-NN candidates: a match
// is kept only when its best distance beats ratio x its second-best,
// which throws out ambiguous matches that would poison the geometry
// fit. Accepted matches become correspondences (query point first,
// matched train point second), ordered by query index.
func FilterMatches(queryKps, trainKps []KeyPoint, nns [][2]Neighbor, ratio float64) []pmath.Correspondence {
	out := []pmath.Correspondence{}
	for qi, nn := range nns {
		if nn[0].TrainIdx < 0 || nn[1].TrainIdx < 0 {
			continue
		}
		if nn[0].Distance >= ratio*nn[1].Distance {
			continue
		}

		q, tr := queryKps[qi], trainKps[nn[0].TrainIdx]
		out = append(out, pmath.Correspondence{
			X1: float64(q.X), Y1: float64(q.Y),
			X2: float64(tr.X), Y2: float64(tr.Y),
		})
	}
	return out
}
