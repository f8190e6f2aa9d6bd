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

// ClientRepository covers only what the ledger needs from the CRM client
// table: reference resolution and display names. Client CRUD lives elsewhere.
type ClientRepository struct {
	*pg.DB
}

func NewClientRepository(db *pg.DB) *ClientRepository {
	return &ClientRepository{
		db,
	}
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	var entity ClientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("client %d not found", id)
		}
		return nil, apperr.Persistence("load client", err)
	}
	return toClientModel(&entity), nil
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	email = strings.TrimSpace(email)

	var entity ClientEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("email = ?", email).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("client with email %q not found", email)
		}
		return nil, apperr.Persistence("find client by email", err)
	}
	return toClientModel(&entity), nil
}
