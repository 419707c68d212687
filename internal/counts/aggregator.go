// Package counts computes per-folder document counts for the folder grid.
// Counts are decorative: a wrong zero is acceptable, an error that blocks
// the whole grid is not, so this package never returns one.
package counts

import (
	"context"
	"log/slog"
	"sync"

	"docvault/internal/domain/models"
)

// Source is the slice of the API the aggregator needs
type Source interface {
	BulkFolderCounts(ctx context.Context, folderIDs []int) (map[int]int, error)
	FolderDocumentCount(ctx context.Context, folderID int) (int, error)
	ListDocuments(ctx context.Context, q models.DocumentQuery) ([]models.Document, error)
}

type Aggregator struct {
	src    Source
	logger *slog.Logger
}

func New(src Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{src: src, logger: logger}
}

// Counts returns a document count for every requested folder ID - always
// exactly one entry per ID. One bulk round trip is attempted first; if it
// fails for any reason the per-folder calls run in parallel, and any folder
// whose own call fails is reported as 0.
func (a *Aggregator) Counts(ctx context.Context, folderIDs []int) map[int]int {
	result := make(map[int]int, len(folderIDs))
	if len(folderIDs) == 0 {
		return result
	}

	bulk, err := a.src.BulkFolderCounts(ctx, folderIDs)
	if err == nil {
		// The bulk endpoint may omit folders it knows nothing about;
		// the contract is a complete map
		for _, id := range folderIDs {
			result[id] = bulk[id]
		}
		return result
	}

	a.logger.Debug("bulk count failed, falling back to per-folder calls",
		"folders", len(folderIDs),
		"error", err,
	)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range folderIDs {
		wg.Add(1)
		go func(folderID int) {
			defer wg.Done()
			count := a.folderCount(ctx, folderID)
			mu.Lock()
			result[folderID] = count
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return result
}

// folderCount resolves a single folder's count, preferring the dedicated
// endpoint and falling back to listing the folder's documents. Failure of
// both means 0.
func (a *Aggregator) folderCount(ctx context.Context, folderID int) int {
	count, err := a.src.FolderDocumentCount(ctx, folderID)
	if err == nil {
		return count
	}

	docs, err := a.src.ListDocuments(ctx, models.DocumentQuery{FolderID: &folderID})
	if err != nil {
		a.logger.Debug("folder count unavailable", "folder_id", folderID, "error", err)
		return 0
	}
	return len(docs)
}
