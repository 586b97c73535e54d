// Package textutil provides text processing helpers shared by the
// ingestion and retrieval paths.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeCosineSimilarity maps a cosine similarity from [-1, 1] to [0, 1].
func NormalizeCosineSimilarity(similarity float64) float64 {
	return (similarity + 1) / 2
}

// NormalizeScore maps a raw backend score to [0, 1] according to the
// metric that produced it. Cosine scores are shifted from [-1, 1],
// inner-product scores are clamped, and L2 distances are inverted so
// that smaller distances score higher.
func NormalizeScore(metric string, score float64) float64 {
	switch metric {
	case "l2":
		if score < 0 {
			score = 0
		}
		return 1 / (1 + score)
	case "ip":
		return Clamp(score, 0, 1)
	default: // cosine
		return Clamp(NormalizeCosineSimilarity(score), 0, 1)
	}
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HashString returns the hex SHA-256 of s. Used for cache keys and
// content fingerprints.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitIntoChunks splits text into overlapping windows of chunkSize
// Unicode characters, advancing chunkSize-overlap characters per step.
// The final window may be shorter and is always kept. Callers validate
// overlap against chunkSize; this function only guards against values
// that would make the window stall.
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap

	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
