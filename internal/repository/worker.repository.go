package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/pg"
)

// WorkerRepository mirrors ClientRepository: lookups only.
type WorkerRepository struct {
	*pg.DB
}

func NewWorkerRepository(db *pg.DB) *WorkerRepository {
	return &WorkerRepository{
		db,
	}
}

func (r *WorkerRepository) GetByID(ctx context.Context, id int64) (*model.Worker, error) {
	var entity WorkerEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("worker %d not found", id)
		}
		return nil, apperr.Persistence("load worker", err)
	}
	return toWorkerModel(&entity), nil
}

// FindByTelegram resolves a worker by telegram handle. A missing leading "@"
// is tolerated; handles are stored with it.
func (r *WorkerRepository) FindByTelegram(ctx context.Context, handle string) (*model.Worker, error) {
	handle = strings.TrimSpace(handle)
	if handle != "" && !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	var entity WorkerEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("telegram_username = ?", handle).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("worker with telegram %q not found", handle)
		}
		return nil, apperr.Persistence("find worker by telegram", err)
	}
	return toWorkerModel(&entity), nil
}
