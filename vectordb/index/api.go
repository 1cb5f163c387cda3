// Package index provides in-memory similarity indexes over float32
// vectors: an exact exhaustive index and a clustered approximate index,
// selected by corpus size. Stored vectors are L2-normalized so that
// inner-product similarity equals cosine similarity.
package index

import (
	"fmt"
	"sort"
)

// Strategy selects the index structure.
type Strategy string

const (
	StrategyAuto Strategy = "auto"
	StrategyFlat Strategy = "flat"
	StrategyIVF  Strategy = "ivf"
)

const (
	// FlatMaxSize is the corpus size at or below which auto selects the
	// exact index.
	FlatMaxSize = 1000
	// MaxClusters caps the cluster count of the approximate index.
	MaxClusters = 100

	// noMatch is the internal sentinel for an unfilled result slot; it is
	// filtered before results reach the caller.
	noMatch = -1
)

// Resolve maps auto onto a concrete strategy for corpus size n.
func (s Strategy) Resolve(n int) Strategy {
	if s != StrategyAuto {
		return s
	}
	if n > FlatMaxSize {
		return StrategyIVF
	}
	return StrategyFlat
}

// ClusterCount returns nlist for a corpus of n vectors: n/10 clamped
// into [1, MaxClusters].
func ClusterCount(n int) int {
	nlist := n / 10
	if nlist < 1 {
		nlist = 1
	}
	if nlist > MaxClusters {
		nlist = MaxClusters
	}
	return nlist
}

// Match is a single similarity hit: the row position of the stored
// vector and its inner-product score (higher is closer).
type Match struct {
	Position int
	Score    float32
}

// Index is a similarity index over float32 vectors. The built structure
// serializes to a single opaque blob independent of the raw embeddings.
type Index interface {
	// Search returns up to topK matches ranked by descending score.
	Search(query []float32, topK int) ([]Match, error)
	// Len reports the number of stored vectors.
	Len() int
	// Dimension reports the vector dimension.
	Dimension() int
	// Kind reports the concrete strategy.
	Kind() Strategy
}

// BuildError aborts an index build; callers must not persist anything
// once it is returned.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string { return "index build aborted: " + e.Reason }

// Build constructs an index over vectors using the given strategy.
// Vectors are copied and normalized; the caller's data is not mutated.
// The clustered strategy degrades to the exact one when the corpus is
// too small for its cluster count to be meaningful.
func Build(vectors [][]float32, strategy Strategy) (Index, error) {
	n := len(vectors)
	if n == 0 {
		return nil, &BuildError{Reason: "no embeddings provided"}
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, &BuildError{Reason: "zero-dimensional embeddings"}
	}
	for i := range vectors {
		if len(vectors[i]) != dim {
			return nil, &BuildError{
				Reason: fmt.Sprintf("inconsistent vector dims %d vs %d at row %d", len(vectors[i]), dim, i),
			}
		}
	}
	resolved := strategy.Resolve(n)
	if resolved == StrategyIVF {
		if nlist := ClusterCount(n); n <= nlist {
			resolved = StrategyFlat
		}
	}
	switch resolved {
	case StrategyFlat:
		return buildFlat(vectors)
	case StrategyIVF:
		return buildIVF(vectors, ClusterCount(n))
	}
	return nil, &BuildError{Reason: fmt.Sprintf("unknown strategy %q", strategy)}
}

// selectTop fills up to topK result slots from scored candidates,
// padding unfilled slots with the noMatch sentinel, then filters the
// sentinel out.
func selectTop(candidates []Match, topK int) []Match {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	slots := make([]Match, topK)
	for i := range slots {
		slots[i] = Match{Position: noMatch}
	}
	for i := 0; i < topK && i < len(candidates); i++ {
		slots[i] = candidates[i]
	}
	out := make([]Match, 0, topK)
	for _, slot := range slots {
		if slot.Position == noMatch {
			continue
		}
		out = append(out, slot)
	}
	return out
}
