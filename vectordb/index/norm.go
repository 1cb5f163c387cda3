package index

import "github.com/viant/vec/search"

// Normalize scales v to unit L2 length in place. A unit vector is left
// effectively unchanged and a zero vector is left as-is to avoid
// division by zero.
func Normalize(v []float32) {
	magnitude := search.Float32s(v).Magnitude()
	if magnitude == 0 {
		return
	}
	inverse := 1 / magnitude
	for i := range v {
		v[i] *= inverse
	}
}

func magnitudeOf(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

// normalizedCopy returns L2-normalized copies of vectors together with
// their resulting magnitudes (1 for non-zero rows, 0 for zero rows).
func normalizedCopy(vectors [][]float32) ([][]float32, []float32) {
	normalized := make([][]float32, len(vectors))
	magnitudes := make([]float32, len(vectors))
	for i, vector := range vectors {
		row := make([]float32, len(vector))
		copy(row, vector)
		Normalize(row)
		normalized[i] = row
		magnitudes[i] = search.Float32s(row).Magnitude()
	}
	return normalized, magnitudes
}
