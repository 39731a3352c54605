package index

import (
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Snapshot pairs a loaded vector store with its metadata records. Record i
// describes vector row i; LoadSnapshot refuses to return a pair where that
// does not hold. A snapshot is immutable: rebuilds produce a new one and
// in-flight queries keep the snapshot they started with.
type Snapshot struct {
	Store   *vector.Store
	Records []*models.IndexRecord
}

// LoadSnapshot loads both index artifacts. It returns ErrIndexNotFound when
// either artifact is absent and ErrCorruptIndex when they cannot be decoded
// or their record counts disagree.
func LoadSnapshot(vectorsPath, metaPath string) (*Snapshot, error) {
	store, err := vector.Load(vectorsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, vectorsPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	records, err := readMeta(metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, metaPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if len(records) != store.Rows() {
		return nil, fmt.Errorf("%w: %d metadata records for %d vector rows",
			ErrCorruptIndex, len(records), store.Rows())
	}
	return &Snapshot{Store: store, Records: records}, nil
}
