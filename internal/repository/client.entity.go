package repository

import (
	"github.com/kassaflow/ledger/internal/model"
)

type ClientEntity struct {
	ID       int64  `db:"id"       gorm:"primaryKey;autoIncrement;column:id"`
	Name     string `db:"name"     gorm:"column:name;not null"`
	Email    string `db:"email"    gorm:"column:email;index"`
	Phone    string `db:"phone"    gorm:"column:phone"`
	Telegram string `db:"telegram" gorm:"column:telegram"`
}

func (ClientEntity) TableName() string {
	return "clients"
}

func toClientModel(e *ClientEntity) *model.Client {
	if e == nil {
		return nil
	}
	return &model.Client{
		ID:       e.ID,
		Name:     e.Name,
		Email:    e.Email,
		Phone:    e.Phone,
		Telegram: e.Telegram,
	}
}
