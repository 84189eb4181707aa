package invoice

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/factura-export/internal/source"
)

// ProcessBatch extracts every document and collects the records in input order.
// With workers > 1 documents are extracted concurrently. A failed document only
// affects its own outcome; failures are logged and counted.
func ProcessBatch(ctx context.Context, ex *Extractor, docs []source.Document, workers int) *Batch {
	outcomes := make([]*Outcome, len(docs))

	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out := ex.Extract(doc.Content, doc.FileName)
			outcomes[i] = &out
			return nil
		})
	}
	// Extraction never returns an error to the group
	_ = g.Wait()

	batch := &Batch{Records: make([]*Record, 0, len(docs))}
	for i, out := range outcomes {
		if out == nil {
			continue
		}
		if out.OK() {
			batch.Records = append(batch.Records, out.Record)
			batch.Succeeded++
			continue
		}

		batch.Failed++
		if out.Kind == Invalid {
			slog.Warn("Document is not a valid invoice", "filename", docs[i].FileName)
		} else {
			slog.Error("Failed to parse document", "filename", docs[i].FileName, "error", out.Err)
		}
	}

	slog.Info("Processed batch",
		"documents", len(docs),
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
	)
	return batch
}
