package repository

import (
	"github.com/kassaflow/ledger/internal/model"
)

type WorkerEntity struct {
	ID               int64  `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	FullName         string `db:"full_name"         gorm:"column:full_name;not null"`
	Position         string `db:"position"          gorm:"column:position"`
	Phone            string `db:"phone"             gorm:"column:phone"`
	TelegramUsername string `db:"telegram_username" gorm:"column:telegram_username;index"`
}

func (WorkerEntity) TableName() string {
	return "workers"
}

func toWorkerModel(e *WorkerEntity) *model.Worker {
	if e == nil {
		return nil
	}
	return &model.Worker{
		ID:               e.ID,
		FullName:         e.FullName,
		Position:         e.Position,
		Phone:            e.Phone,
		TelegramUsername: e.TelegramUsername,
	}
}
