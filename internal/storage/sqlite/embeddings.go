package sqlite

import (
	"context"
	"fmt"

	"github.com/sandevgo/memobot/internal/core"
)

// SaveEmbedding replaces the vector for (item, source) wholesale.
func (r *ItemsRepo) SaveEmbedding(ctx context.Context, emb core.MemoryItemEmbedding) error {
	blob, err := serializeVector(emb.Vector)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memory_item_embedding (memory_item_id, source, model, dim, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		emb.ItemID, emb.Source, emb.Model, len(emb.Vector), blob, formatTime(emb.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

func (r *ItemsRepo) ListEmbeddings(ctx context.Context) ([]core.MemoryItemEmbedding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT memory_item_id, source, model, dim, embedding, created_at
		FROM memory_item_embedding
		ORDER BY memory_item_id, source`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var out []core.MemoryItemEmbedding
	for rows.Next() {
		var (
			emb     core.MemoryItemEmbedding
			dim     int
			blob    []byte
			created string
		)
		if err := rows.Scan(&emb.ItemID, &emb.Source, &emb.Model, &dim, &blob, &created); err != nil {
			return nil, err
		}
		if emb.Vector, err = deserializeVector(blob, dim); err != nil {
			return nil, fmt.Errorf("embedding %s/%s: %w", emb.ItemID, emb.Source, err)
		}
		if emb.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, emb)
	}
	return out, rows.Err()
}
