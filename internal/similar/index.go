package similar

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/vetbolaget/triage/internal/rules"
)

// Example is one labeled email in the similarity corpus.
type Example struct {
	ID       int64
	Text     string
	Category rules.Category
}

// Index is a brute-force cosine nearest-neighbor index over labeled
// emails. The corpus is small (thousands, not millions), so linear scan
// beats maintaining an ANN structure.
type Index struct {
	embedder Embedder

	mu     sync.RWMutex
	vecs   [][]float32
	labels []rules.Category
	ids    []int64
}

// NewIndex creates an empty index backed by an embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Build embeds and stores the labeled corpus, replacing any previous
// contents. Examples with invalid labels are rejected up front.
func (ix *Index) Build(ctx context.Context, examples []Example) error {
	for _, ex := range examples {
		if !ex.Category.Valid() {
			return fmt.Errorf("example %d: unknown category %q", ex.ID, ex.Category)
		}
	}

	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}

	labels := make([]rules.Category, len(examples))
	ids := make([]int64, len(examples))
	kept := vecs[:0]
	ki := 0
	for i, v := range vecs {
		if len(v) == 0 {
			continue
		}
		kept = append(kept, v)
		labels[ki] = examples[i].Category
		ids[ki] = examples[i].ID
		ki++
	}

	ix.mu.Lock()
	ix.vecs = kept
	ix.labels = labels[:ki]
	ix.ids = ids[:ki]
	ix.mu.Unlock()
	return nil
}

// Len reports the number of indexed examples.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vecs)
}

// Suggest returns the category of the nearest labeled email and the
// cosine similarity to it. An empty index yields an error, so the caller
// falls through to its default.
func (ix *Index) Suggest(ctx context.Context, normalized string) (rules.Category, float64, error) {
	ix.mu.RLock()
	empty := len(ix.vecs) == 0
	ix.mu.RUnlock()
	if empty {
		return "", 0, fmt.Errorf("similarity index is empty")
	}

	query, err := ix.embedder.Embed(ctx, normalized)
	if err != nil {
		return "", 0, fmt.Errorf("embedding query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	best := -1
	bestSim := -1.0
	for i, v := range ix.vecs {
		sim := cosine(query, v)
		if sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	if best < 0 {
		return "", 0, fmt.Errorf("no comparable vectors in index")
	}
	return ix.labels[best], bestSim, nil
}

// Hit is one ranked neighbor from the corpus.
type Hit struct {
	ID         int64
	Category   rules.Category
	Similarity float64
}

// Nearest returns the k most similar corpus emails to the given text,
// best first. An empty index yields an empty slice, not an error.
func (ix *Index) Nearest(ctx context.Context, text string, k int) ([]Hit, error) {
	ix.mu.RLock()
	empty := len(ix.vecs) == 0
	ix.mu.RUnlock()
	if empty || k <= 0 {
		return nil, nil
	}

	query, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]Hit, 0, len(ix.vecs))
	for i, v := range ix.vecs {
		sim := cosine(query, v)
		if sim < 0 {
			continue
		}
		hits = append(hits, Hit{ID: ix.ids[i], Category: ix.labels[i], Similarity: sim})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
