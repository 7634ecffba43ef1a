package item

import (
	"crypto/md5"

	"badc0de.net/pkg/go-itemedit/binbuf"
)

// SpriteHashSize is the length of the content digest stored in items.otb.
const SpriteHashSize = md5.Size

// SignatureBlocks is how many block means make up one sprite's perceptual
// signature vector.
const SignatureBlocks = 64

// CalculateSpriteHash digests the sprite blobs in order followed by the
// geometry fields. The result is deterministic and order sensitive; it is
// what items.otb stores as the sprite hash attribute.
func (c *ClientItem) CalculateSpriteHash() []byte {
	h := md5.New()
	for _, blob := range c.SpriteBlobs {
		h.Write(blob)
	}
	var geom binbuf.Writer
	geom.U8(c.Width)
	geom.U8(c.Height)
	geom.U8(c.Layers)
	geom.U8(c.PatternX)
	geom.U8(c.PatternY)
	geom.U8(c.PatternZ)
	geom.U8(c.Frames)
	geom.U8(c.AnimationPhases)
	geom.U8(c.XDiv)
	geom.U8(c.YDiv)
	geom.U8(c.ZDiv)
	h.Write(geom.Bytes())
	return h.Sum(nil)
}

// VerifySpriteHash reports whether the hash stored on the server item is
// exactly the digest of the given client item's blobs and geometry. A
// server item with no stored hash never verifies.
func (i *ServerItem) VerifySpriteHash(c *ClientItem) bool {
	if len(i.SpriteHash) != SpriteHashSize {
		return false
	}
	want := c.CalculateSpriteHash()
	for idx := range want {
		if i.SpriteHash[idx] != want[idx] {
			return false
		}
	}
	return true
}

// CalculateSpriteSignature computes one 64-element vector per sprite blob:
// the blob is split into 64 contiguous blocks and each element is the
// block's byte mean normalized into [0, 1]. The result is stored on the
// item and returned.
func (c *ClientItem) CalculateSpriteSignature() [][]float64 {
	out := make([][]float64, len(c.SpriteBlobs))
	for idx, blob := range c.SpriteBlobs {
		out[idx] = blockMeans(blob)
	}
	c.SpriteSignature = out
	return out
}

// blockMeans splits data into SignatureBlocks contiguous runs and returns
// their normalized means. Blocks with no bytes (short blobs) stay zero.
func blockMeans(data []byte) []float64 {
	v := make([]float64, SignatureBlocks)
	if len(data) == 0 {
		return v
	}
	blockLen := len(data) / SignatureBlocks
	if blockLen < 1 {
		blockLen = 1
	}
	for block := 0; block < SignatureBlocks; block++ {
		start := block * blockLen
		if start >= len(data) {
			break
		}
		end := start + blockLen
		if block == SignatureBlocks-1 || end > len(data) {
			end = len(data)
		}
		var sum uint64
		for _, b := range data[start:end] {
			sum += uint64(b)
		}
		v[block] = float64(sum) / float64(end-start) / 255.0
	}
	return v
}
