package rag

// NormalizeScores converts raw distances from one or more retrieval batches
// into relevance scores in [0, 1]. The min and max are taken jointly over all
// batches so that scores from different sub-queries stay comparable. A hit at
// the minimum distance maps to 1 and one at the maximum to 0; when all
// distances are equal every hit maps to 1. Duplicate keys keep their highest
// score.
func NormalizeScores(batches ...[]RawHit) map[string]float64 {
	minDist, maxDist, any := distanceBounds(batches)
	if !any {
		return map[string]float64{}
	}

	span := maxDist - minDist
	if span == 0 {
		span = 1
	}

	scores := make(map[string]float64)
	for _, batch := range batches {
		for _, hit := range batch {
			score := 1 - (hit.Distance-minDist)/span
			if existing, ok := scores[hit.Key]; !ok || score > existing {
				scores[hit.Key] = score
			}
		}
	}
	return scores
}

func distanceBounds(batches [][]RawHit) (minDist, maxDist float64, any bool) {
	for _, batch := range batches {
		for _, hit := range batch {
			if !any {
				minDist, maxDist = hit.Distance, hit.Distance
				any = true
				continue
			}
			if hit.Distance < minDist {
				minDist = hit.Distance
			}
			if hit.Distance > maxDist {
				maxDist = hit.Distance
			}
		}
	}
	return minDist, maxDist, any
}
