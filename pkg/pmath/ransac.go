package pmath

import(
	"math/rand"
	"sync"
)

// A RansacEstimator fits homographies to correspondence sets that are
// contaminated with mismatches: repeatedly fit a candidate to a small
// random sample, score it by how many of the full set agree with it,
// then refit over the largest agreeing set found.
type RansacEstimator struct {
	InlierThreshold float64     // squared pixels; below this a correspondence agrees with a candidate
	Workers         int         // trial goroutines; <=1 runs the trials serially

	rng             *rand.Rand
}

func NewRansacEstimator(inlierThreshold float64, seed int64) *RansacEstimator {
	return &RansacEstimator{
		InlierThreshold: inlierThreshold,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// Fit runs `iterations` random-sample trials of `sampleSize` and
// returns the refit over the best inlier set, or ok=false when no
// trial found a usable consensus. Results are reproducible for a given
// seed, worker count notwithstanding.
func (re *RansacEstimator)Fit(pairs []Correspondence, sampleSize, iterations int) (Mat3, bool) {
	if sampleSize < 4 || len(pairs) < sampleSize || iterations < 1 {
		return Mat3{}, false
	}

	// Samples are drawn up front from the single seeded source, so the
	// trial sequence is identical whether trials run serially or on a
	// worker pool.
	samples := make([][]Correspondence, iterations)
	for i:=0; i<iterations; i++ {
		idxs := re.rng.Perm(len(pairs))[:sampleSize]
		sample := make([]Correspondence, sampleSize)
		for j, idx := range idxs {
			sample[j] = pairs[idx]
		}
		samples[i] = sample
	}

	inlierSets := make([][]Correspondence, iterations)
	if re.Workers > 1 {
		re.runTrialsConcurrently(pairs, samples, inlierSets)
	} else {
		for i, sample := range samples {
			inlierSets[i] = re.runTrial(pairs, sample)
		}
	}

	// Most inliers wins; the earliest such trial wins ties.
	var best []Correspondence
	for _, inliers := range inlierSets {
		if len(inliers) > len(best) {
			best = inliers
		}
	}

	if len(best) < 4 {
		return Mat3{}, false
	}

	h, err := SolveHomography(best)
	if err != nil || h.IsDegenerate() {
		return Mat3{}, false
	}

	return h, true
}

// runTrial fits one sample and collects the inliers from the full set.
// A nil return means the trial produced nothing usable.
func (re *RansacEstimator)runTrial(pairs, sample []Correspondence) []Correspondence {
	h, err := SolveHomography(sample)
	if err != nil {
		return nil
	}

	// A candidate that collapses the plane can score spuriously well,
	// so skip it rather than let it poison the consensus.
	if h.IsDegenerate() {
		return nil
	}

	inliers := []Correspondence{}
	for i, e := range ReprojectionErrors(pairs, h) {
		if e < re.InlierThreshold {
			inliers = append(inliers, pairs[i])
		}
	}
	return inliers
}

type ransacJob struct {
	// Inputs for the job
	Idx     int
	Pairs   []Correspondence
	Sample  []Correspondence

	// Output
	Inliers []Correspondence
}

// runTrialsConcurrently farms the trials out to a pool of goroutines.
// Results land in inlierSets at their trial index, so the caller's
// reduction sees them in trial order no matter which worker ran what.
func (re *RansacEstimator)runTrialsConcurrently(pairs []Correspondence, samples, inlierSets [][]Correspondence) {
	var wg sync.WaitGroup
	jobsChan    := make(chan ransacJob, len(samples))
	resultsChan := make(chan ransacJob, len(samples))

	for i:=0; i<re.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.Inliers = re.runTrial(job.Pairs, job.Sample)
				resultsChan<- job
			}
		}()
	}

	for i, sample := range samples {
		jobsChan<- ransacJob{Idx: i, Pairs: pairs, Sample: sample}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	for res := range resultsChan {
		inlierSets[res.Idx] = res.Inliers
	}
}
