package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mholt/archives"

	"github.com/novacode/novacode-backend/internal/projects/domain"
)

// Indexer lists the entries of a stored archive so the code explorer can
// render the tree without downloading it.
type Indexer struct {
	maxEntries int
}

func NewIndexer(maxEntries int) *Indexer {
	if maxEntries <= 0 {
		maxEntries = 5000
	}
	return &Indexer{maxEntries: maxEntries}
}

// Index builds the manifest of data. Content that is not a recognised
// archive is indexed as the single file it is.
func (ix *Indexer) Index(ctx context.Context, filename string, data []byte) (domain.Manifest, error) {
	format, _, err := archives.Identify(ctx, filename, bytes.NewReader(data))
	if errors.Is(err, archives.NoMatch) {
		return domain.Manifest{FileCount: 1, Files: []string{filename}}, nil
	}
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("identify archive: %w", err)
	}

	ex, ok := format.(archives.Extractor)
	if !ok {
		return domain.Manifest{FileCount: 1, Files: []string{filename}}, nil
	}

	m := domain.Manifest{Files: make([]string, 0, 64)}
	err = ex.Extract(ctx, bytes.NewReader(data), func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}
		m.FileCount++
		if len(m.Files) < ix.maxEntries {
			m.Files = append(m.Files, f.NameInArchive)
		}
		return nil
	})
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("list archive: %w", err)
	}
	return m, nil
}
