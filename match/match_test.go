package match

import (
	"context"
	"testing"

	"badc0de.net/pkg/go-itemedit/errs"
	"badc0de.net/pkg/go-itemedit/item"
	"badc0de.net/pkg/go-itemedit/ttesting"
)

func clientItemWithBlob(id uint16, blob []byte) *item.ClientItem {
	c := item.NewClientItem(id)
	c.SpriteBlobs = [][]byte{blob}
	return c
}

func TestSimilarityIdentical(t *testing.T) {
	a := clientItemWithBlob(1, []byte{1, 2, 3, 4, 200, 100, 50, 25}).CalculateSpriteSignature()
	b := clientItemWithBlob(2, []byte{1, 2, 3, 4, 200, 100, 50, 25}).CalculateSpriteSignature()
	if got := Similarity(a, b); got != 1.0 {
		t.Errorf("identical signatures: got %f, want 1.0", got)
	}
}

func TestSimilaritySelfIsExactlyOne(t *testing.T) {
	c := item.NewClientItem(7)
	c.SpriteBlobs = [][]byte{
		{3, 141, 59, 26, 53, 58, 97, 93},
		{2, 71, 82, 81, 82, 84, 59, 45},
	}
	sig := c.CalculateSpriteSignature()
	if got := Similarity(sig, sig); got != 1.0 {
		t.Errorf("self similarity: got %.17f, want exactly 1.0", got)
	}
}

func TestSimilarityRange(t *testing.T) {
	a := clientItemWithBlob(1, []byte{0, 0, 0, 255, 255, 255}).CalculateSpriteSignature()
	b := clientItemWithBlob(2, []byte{255, 255, 255, 0, 0, 0}).CalculateSpriteSignature()
	got := Similarity(a, b)
	ttesting.AssertInRangeFloat64(t, "similarity", got, -1.0, 1.0)
}

func TestSimilarityLengthMismatch(t *testing.T) {
	a := clientItemWithBlob(1, []byte{9, 9, 9})
	b := clientItemWithBlob(2, []byte{9, 9, 9})
	b.SpriteBlobs = append(b.SpriteBlobs, []byte{9, 9, 9})
	if got := Similarity(a.CalculateSpriteSignature(), b.CalculateSpriteSignature()); got != 0 {
		t.Errorf("mismatched vector counts: got %f, want 0", got)
	}
}

func TestTopKCandidatesDeterministic(t *testing.T) {
	blob := []byte{10, 20, 30, 40, 50, 60, 70, 80}
	query := clientItemWithBlob(500, blob)
	pool := []*item.ClientItem{
		clientItemWithBlob(103, blob),
		clientItemWithBlob(101, blob),
		clientItemWithBlob(102, blob),
	}

	got := TopKCandidates(query, pool, 3, DefaultThreshold)
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	for idx, wantID := range []uint16{101, 102, 103} {
		ttesting.AssertEqualUint16(t, "candidate order", got[idx].ClientID, wantID)
		if got[idx].Score != 1.0 {
			t.Errorf("candidate %d score: got %f, want 1.0", wantID, got[idx].Score)
		}
	}
}

func TestTopKCandidatesThreshold(t *testing.T) {
	query := clientItemWithBlob(500, []byte{255, 255, 255, 255, 0, 0, 0, 0})
	pool := []*item.ClientItem{
		clientItemWithBlob(101, []byte{0, 0, 0, 0, 255, 255, 255, 255}),
	}
	if got := TopKCandidates(query, pool, 5, DefaultThreshold); len(got) != 0 {
		t.Errorf("dissimilar item above threshold: %v", got)
	}
}

func TestBuildSignatures(t *testing.T) {
	items := []*item.ClientItem{
		clientItemWithBlob(101, []byte{1, 2, 3}),
		clientItemWithBlob(102, []byte{4, 5, 6}),
	}
	if err := BuildSignatures(context.Background(), items); err != nil {
		t.Fatalf("BuildSignatures: %v", err)
	}
	for _, it := range items {
		if it.SpriteSignature == nil {
			t.Errorf("item %d has no signature", it.ClientID)
		}
	}
}

func TestBuildSignaturesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items := []*item.ClientItem{clientItemWithBlob(101, []byte{1, 2, 3})}
	err := BuildSignatures(ctx, items)
	if !errs.IsKind(err, errs.Cancelled) {
		t.Errorf("got error %v; want kind %s", err, errs.Cancelled)
	}
}
