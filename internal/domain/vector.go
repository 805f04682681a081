package domain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dimensions is the embedding width used across the catalog.
const Dimensions = 1536

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HealthChecker is implemented by providers that can verify upstream
// availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// VectorToBytes packs a vector as 4-byte little-endian float32s, the format
// stored in the catalog's embedding blobs.
func VectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// VectorFromBytes is the inverse of VectorToBytes.
func VectorFromBytes(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// VectorLiteral renders a vector as the "[v1,v2,...]" string accepted by
// libSQL's vector32() constructor.
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 when either vector has zero magnitude or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	mag := math.Sqrt(normA) * math.Sqrt(normB)
	if mag == 0 {
		return 0
	}
	return dot / mag
}
