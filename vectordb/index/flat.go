package index

import (
	"fmt"

	"github.com/viant/vec/search"
)

// flatIndex is the exact exhaustive index: every query is compared
// against every stored vector.
type flatIndex struct {
	dim        int
	vectors    [][]float32
	magnitudes []float32
}

func buildFlat(vectors [][]float32) (*flatIndex, error) {
	normalized, magnitudes := normalizedCopy(vectors)
	return &flatIndex{
		dim:        len(vectors[0]),
		vectors:    normalized,
		magnitudes: magnitudes,
	}, nil
}

func (f *flatIndex) Len() int       { return len(f.vectors) }
func (f *flatIndex) Dimension() int { return f.dim }
func (f *flatIndex) Kind() Strategy { return StrategyFlat }

func (f *flatIndex) Search(query []float32, topK int) ([]Match, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("flat: query dim %d != index dim %d", len(query), f.dim)
	}
	if topK <= 0 {
		return nil, nil
	}
	queryMagnitude := search.Float32s(query).Magnitude()
	if queryMagnitude == 0 {
		return nil, nil
	}
	candidates := make([]Match, 0, len(f.vectors))
	for position, vector := range f.vectors {
		if f.magnitudes[position] == 0 {
			continue
		}
		distance := search.Float32s(query).CosineDistanceWithMagnitude(vector, queryMagnitude, f.magnitudes[position])
		candidates = append(candidates, Match{Position: position, Score: 1 - distance})
	}
	return selectTop(candidates, topK), nil
}
