package index

import (
	"fmt"

	"github.com/viant/vec/search"
)

const (
	defaultProbes   = 8
	trainIterations = 10
)

// ivfIndex partitions vectors into nlist clusters trained on the corpus
// itself and searches only the most promising clusters, trading some
// recall for speed.
type ivfIndex struct {
	dim        int
	nlist      int
	nprobe     int
	centroids  [][]float32
	lists      [][]int32
	vectors    [][]float32
	magnitudes []float32
}

func buildIVF(vectors [][]float32, nlist int) (*ivfIndex, error) {
	normalized, magnitudes := normalizedCopy(vectors)
	centroids := trainCentroids(normalized, nlist)
	lists := make([][]int32, len(centroids))
	for position, vector := range normalized {
		nearest := nearestCentroid(centroids, vector)
		lists[nearest] = append(lists[nearest], int32(position))
	}
	nprobe := defaultProbes
	if nprobe > len(centroids) {
		nprobe = len(centroids)
	}
	return &ivfIndex{
		dim:        len(vectors[0]),
		nlist:      len(centroids),
		nprobe:     nprobe,
		centroids:  centroids,
		lists:      lists,
		vectors:    normalized,
		magnitudes: magnitudes,
	}, nil
}

func (v *ivfIndex) Len() int       { return len(v.vectors) }
func (v *ivfIndex) Dimension() int { return v.dim }
func (v *ivfIndex) Kind() Strategy { return StrategyIVF }

func (v *ivfIndex) Search(query []float32, topK int) ([]Match, error) {
	if len(query) != v.dim {
		return nil, fmt.Errorf("ivf: query dim %d != index dim %d", len(query), v.dim)
	}
	if topK <= 0 {
		return nil, nil
	}
	queryMagnitude := search.Float32s(query).Magnitude()
	if queryMagnitude == 0 {
		return nil, nil
	}
	probed := v.probedClusters(query, queryMagnitude)
	var candidates []Match
	for _, cluster := range probed {
		for _, position := range v.lists[cluster] {
			if v.magnitudes[position] == 0 {
				continue
			}
			distance := search.Float32s(query).CosineDistanceWithMagnitude(
				v.vectors[position], queryMagnitude, v.magnitudes[position])
			candidates = append(candidates, Match{Position: int(position), Score: 1 - distance})
		}
	}
	return selectTop(candidates, topK), nil
}

// probedClusters ranks centroids by similarity to the query and returns
// the nprobe closest.
func (v *ivfIndex) probedClusters(query []float32, queryMagnitude float32) []int {
	scored := make([]Match, 0, len(v.centroids))
	for i, centroid := range v.centroids {
		magnitude := search.Float32s(centroid).Magnitude()
		if magnitude == 0 {
			continue
		}
		distance := search.Float32s(query).CosineDistanceWithMagnitude(centroid, queryMagnitude, magnitude)
		scored = append(scored, Match{Position: i, Score: 1 - distance})
	}
	top := selectTop(scored, v.nprobe)
	out := make([]int, 0, len(top))
	for _, match := range top {
		out = append(out, match.Position)
	}
	return out
}

// trainCentroids runs a small deterministic k-means over the normalized
// corpus: centroids start as a stride sample and are refined by
// assign/update rounds, re-normalized each round so inner product stays
// a cosine measure.
func trainCentroids(vectors [][]float32, nlist int) [][]float32 {
	n := len(vectors)
	dim := len(vectors[0])
	centroids := make([][]float32, nlist)
	for i := 0; i < nlist; i++ {
		seed := vectors[i*n/nlist]
		centroid := make([]float32, dim)
		copy(centroid, seed)
		centroids[i] = centroid
	}
	assignments := make([]int, n)
	for iteration := 0; iteration < trainIterations; iteration++ {
		changed := false
		for position, vector := range vectors {
			nearest := nearestCentroid(centroids, vector)
			if assignments[position] != nearest {
				assignments[position] = nearest
				changed = true
			}
		}
		if !changed && iteration > 0 {
			break
		}
		sums := make([][]float32, nlist)
		counts := make([]int, nlist)
		for i := range sums {
			sums[i] = make([]float32, dim)
		}
		for position, vector := range vectors {
			cluster := assignments[position]
			counts[cluster]++
			for j, value := range vector {
				sums[cluster][j] += value
			}
		}
		for i := range centroids {
			if counts[i] == 0 {
				continue // empty cluster keeps its previous centroid
			}
			for j := range sums[i] {
				sums[i][j] /= float32(counts[i])
			}
			Normalize(sums[i])
			centroids[i] = sums[i]
		}
	}
	return centroids
}

func nearestCentroid(centroids [][]float32, vector []float32) int {
	magnitude := search.Float32s(vector).Magnitude()
	best, bestScore := 0, float32(-2)
	if magnitude == 0 {
		return best
	}
	for i, centroid := range centroids {
		centroidMagnitude := search.Float32s(centroid).Magnitude()
		if centroidMagnitude == 0 {
			continue
		}
		score := 1 - search.Float32s(vector).CosineDistanceWithMagnitude(centroid, magnitude, centroidMagnitude)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
