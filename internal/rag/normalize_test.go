package rag

import (
	"math"
	"testing"
)

func TestNormalizeScores_JointBounds(t *testing.T) {
	// The min and max are shared across batches: the closest hit overall gets
	// 1 and the farthest gets 0, regardless of which batch they came from.
	questionHits := []RawHit{
		{Key: "a", Distance: 0.2},
		{Key: "b", Distance: 0.6},
	}
	answerHits := []RawHit{
		{Key: "c", Distance: 1.0},
	}

	scores := NormalizeScores(questionHits, answerHits)

	if got := scores["a"]; got != 1.0 {
		t.Errorf("score[a] = %v, want 1.0", got)
	}
	if got := scores["c"]; got != 0.0 {
		t.Errorf("score[c] = %v, want 0.0", got)
	}
	if got := scores["b"]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("score[b] = %v, want 0.5", got)
	}
}

func TestNormalizeScores_AllInUnitInterval(t *testing.T) {
	batches := [][]RawHit{
		{{Key: "a", Distance: 0.13}, {Key: "b", Distance: 0.87}},
		{{Key: "c", Distance: 0.55}, {Key: "d", Distance: 1.9}},
	}

	scores := NormalizeScores(batches...)
	for key, score := range scores {
		if score < 0 || score > 1 {
			t.Errorf("score[%s] = %v, outside [0, 1]", key, score)
		}
	}
}

func TestNormalizeScores_DuplicateKeysKeepBest(t *testing.T) {
	// A key hit by both sub-queries keeps its higher score.
	questionHits := []RawHit{{Key: "shared", Distance: 0.1}}
	answerHits := []RawHit{
		{Key: "shared", Distance: 0.9},
		{Key: "other", Distance: 0.5},
	}

	scores := NormalizeScores(questionHits, answerHits)

	if got := scores["shared"]; got != 1.0 {
		t.Errorf("score[shared] = %v, want 1.0 (best of both hits)", got)
	}
	if len(scores) != 2 {
		t.Errorf("got %d keys, want 2", len(scores))
	}
}

func TestNormalizeScores_EqualDistances(t *testing.T) {
	// When every distance is identical there is no spread to normalize over;
	// everything is maximally relevant.
	hits := []RawHit{
		{Key: "a", Distance: 0.4},
		{Key: "b", Distance: 0.4},
	}

	scores := NormalizeScores(hits)
	for key, score := range scores {
		if score != 1.0 {
			t.Errorf("score[%s] = %v, want 1.0", key, score)
		}
	}
}

func TestNormalizeScores_Empty(t *testing.T) {
	scores := NormalizeScores(nil, []RawHit{})
	if len(scores) != 0 {
		t.Errorf("got %d scores for empty input, want 0", len(scores))
	}
}
