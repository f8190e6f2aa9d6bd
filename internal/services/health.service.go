package services

import "github.com/kassaflow/ledger/pkg/pg"

type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

func (s *HealthService) Get() error {
	return nil
}
