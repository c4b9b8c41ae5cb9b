package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"github.com/sandevgo/memobot/internal/core"
)

const collectionName = "memory_items"

// Index is an in-process similarity index over memory item embeddings. It
// holds derived state only and is rebuilt from the store on start.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
}

func NewIndex() (*Index, error) {
	db := chromem.NewDB()
	// No embedding func: vectors are always supplied by the caller.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

func docID(itemID, source string) string {
	return itemID + ":" + source
}

func (x *Index) Upsert(ctx context.Context, e core.IndexEntry) error {
	if len(e.Vector) == 0 || isZero(e.Vector) {
		return fmt.Errorf("item %s: empty vector", e.ItemID)
	}
	status := e.Status
	if status == "" {
		status = core.StatusPending
	}
	doc := chromem.Document{
		ID: docID(e.ItemID, e.Source),
		Metadata: map[string]string{
			"item_id":   e.ItemID,
			"person_id": e.PersonID,
			"kind":      string(e.Kind),
			"status":    string(status),
		},
		// chromem normalises in place; keep the caller's slice intact.
		Embedding: append([]float32(nil), e.Vector...),
		Content:   e.ItemID,
	}
	if err := x.col.AddDocument(ctx, doc); err != nil {
		return core.Unavailable("similarity index", err)
	}
	return nil
}

// Search returns up to TopK items, best first. An item indexed under several
// sources is reported once with its best score. Person, kind and status
// narrow the scope when set.
func (x *Index) Search(ctx context.Context, q core.SearchQuery) ([]core.Match, error) {
	if q.TopK <= 0 || len(q.Vector) == 0 || isZero(q.Vector) {
		return nil, nil
	}

	where := map[string]string{}
	if q.PersonID != "" {
		where["person_id"] = q.PersonID
	}
	if q.Kind != "" {
		where["kind"] = string(q.Kind)
	}
	if q.Status != "" {
		where["status"] = string(q.Status)
	}

	// Two sources per item at most.
	n := q.TopK * 2
	if count := x.col.Count(); n > count {
		n = count
	}

	var results []chromem.Result
	for ; n >= 1; n-- {
		var err error
		results, err = x.col.QueryEmbedding(ctx, append([]float32(nil), q.Vector...), n, where, nil)
		if err == nil {
			break
		}
		if !isInsufficientDocs(err) {
			return nil, core.Unavailable("similarity index", err)
		}
	}

	seen := make(map[string]struct{}, len(results))
	matches := make([]core.Match, 0, len(results))
	for _, r := range results {
		itemID := r.Metadata["item_id"]
		if _, dup := seen[itemID]; dup {
			continue
		}
		seen[itemID] = struct{}{}
		matches = append(matches, core.Match{ItemID: itemID, Score: r.Similarity})
		if len(matches) == q.TopK {
			break
		}
	}
	return matches, nil
}

// Rebuild loads entries into the index. Existing documents with the same
// item and source are replaced.
func (x *Index) Rebuild(ctx context.Context, entries []core.IndexEntry) (int, error) {
	var errs []error
	loaded := 0
	for _, e := range entries {
		if err := x.Upsert(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

// SetStatus rewrites the status tag on every vector of itemID.
func (x *Index) SetStatus(ctx context.Context, itemID string, status core.ItemStatus) error {
	for _, source := range []string{core.EmbeddingSourceContent, core.EmbeddingSourceSummary} {
		doc, err := x.col.GetByID(ctx, docID(itemID, source))
		if err != nil {
			// Not indexed under this source.
			continue
		}
		doc.Metadata["status"] = string(status)
		if err := x.col.AddDocument(ctx, doc); err != nil {
			return core.Unavailable("similarity index", err)
		}
	}
	return nil
}

// Remove drops every vector of itemID.
func (x *Index) Remove(ctx context.Context, itemID string) error {
	if err := x.col.Delete(ctx, map[string]string{"item_id": itemID}, nil); err != nil {
		return core.Unavailable("similarity index", err)
	}
	return nil
}

func (x *Index) Count() int {
	return x.col.Count()
}

func isInsufficientDocs(err error) bool {
	s := err.Error()
	return strings.Contains(s, "nResults must be") || strings.Contains(s, "number of documents")
}

func isZero(v []float32) bool {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return sum == 0 || math.IsNaN(sum)
}
