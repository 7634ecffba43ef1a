// Package match scores perceptual similarity between client items using
// their per-sprite block-mean signatures, and finds the best candidates
// for a query item.
package match

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
)

// DefaultThreshold is the similarity above which two items are considered
// a match unless the caller overrides it.
const DefaultThreshold = 0.95

// Similarity returns the mean cosine similarity over aligned signature
// vectors, in [-1, 1]. Signatures with a different number of vectors do
// not compare and score 0.
func Similarity(a, b [][]float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var sum float64
	for idx := range a {
		sum += cosine(a[idx], b[idx])
	}
	return sum / float64(len(a))
}

// cosine is the cosine similarity of two equal-length vectors. Two zero
// vectors are identical and score 1; a single zero vector scores 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for idx := range a {
		dot += a[idx] * b[idx]
		normA += a[idx] * a[idx]
		normB += b[idx] * b[idx]
	}
	if normA == 0 && normB == 0 {
		return 1
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	// A single square root keeps a self-comparison at exactly 1.0; the
	// clamp soaks up any residual floating point spill.
	c := dot / math.Sqrt(normA*normB)
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

// Candidate is one ranked result of a candidate search.
type Candidate struct {
	ClientID uint16
	Score    float64
}

// TopKCandidates ranks the pool items by similarity to the query and
// returns up to k candidates scoring at least threshold. Equal scores are
// ordered by ascending client ID so results are deterministic. A k of 0
// or less returns every candidate above the threshold. Items with no
// computed signature get one on the fly.
func TopKCandidates(query *item.ClientItem, pool []*item.ClientItem, k int, threshold float64) []Candidate {
	qsig := query.SpriteSignature
	if qsig == nil {
		qsig = query.CalculateSpriteSignature()
	}

	out := make([]Candidate, 0, len(pool))
	for _, cand := range pool {
		csig := cand.SpriteSignature
		if csig == nil {
			csig = cand.CalculateSpriteSignature()
		}
		score := Similarity(qsig, csig)
		if score >= threshold {
			out = append(out, Candidate{ClientID: cand.ClientID, Score: score})
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ClientID < out[b].ClientID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// BuildSignatures computes the sprite signature of every item that does
// not have one yet, fanning out across CPUs. On cancellation the items
// processed so far keep their signatures and a Cancelled error is
// returned.
func BuildSignatures(ctx context.Context, items []*item.ClientItem) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, it := range items {
		if it.SpriteSignature != nil {
			continue
		}
		it := it
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return errs.New(errs.Cancelled, "signature build cancelled: %v", ctx.Err())
			default:
			}
			it.CalculateSpriteSignature()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	glog.V(2).Infof("signatures built for %d items", len(items))
	return nil
}
