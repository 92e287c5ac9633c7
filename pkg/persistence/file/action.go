package file

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"sync"

	"github.com/dukex/taskflow/pkg/models"
	"github.com/dukex/taskflow/pkg/persistence"
)

// ActionRepository stores one JSON document per action record.
type ActionRepository struct {
	root string
	mu   sync.RWMutex
}

func NewActionRepository(root string) *ActionRepository {
	return &ActionRepository{root: root}
}

func (r *ActionRepository) Create(_ context.Context, record *models.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := writeJSON(r.root, actionsDir, record.ID, record)
	if err != nil {
		return persistence.NewActionError("Create", record.ID, err)
	}

	return nil
}

func (r *ActionRepository) GetByID(_ context.Context, id string) (*models.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, err := r.load(id)
	if err != nil {
		return nil, persistence.NewActionError("GetByID", id, err)
	}

	return record, nil
}

func (r *ActionRepository) Finalize(_ context.Context, record *models.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.load(record.ID)
	if err != nil {
		return persistence.NewActionError("Finalize", record.ID, err)
	}

	if stored.Status != models.ActionStatusLoading {
		return persistence.NewActionError("Finalize", record.ID, persistence.ErrActionFinalized)
	}

	err = writeJSON(r.root, actionsDir, record.ID, record)
	if err != nil {
		return persistence.NewActionError("Finalize", record.ID, err)
	}

	return nil
}

func (r *ActionRepository) ListByProject(_ context.Context, projectID string, limit int) ([]*models.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := listIDs(r.root, actionsDir)
	if err != nil {
		return nil, err
	}

	records := make([]*models.ActionRecord, 0)

	for _, id := range ids {
		record, err := r.load(id)
		if err != nil {
			if errors.Is(err, persistence.ErrActionNotFound) {
				continue
			}

			return nil, persistence.NewActionError("ListByProject", id, err)
		}

		if record.ProjectID == projectID {
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (r *ActionRepository) load(id string) (*models.ActionRecord, error) {
	var record models.ActionRecord

	err := readJSON(r.root, actionsDir, id, &record)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrActionNotFound
		}

		return nil, err
	}

	return &record, nil
}
