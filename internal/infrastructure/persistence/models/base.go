package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/docforge/backend/internal/domain/shared"
)

// BaseModel holds the columns every stored table shares. Rows are written
// with the ids and timestamps the domain assigned, never generated by the database.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func baseModelOf(e shared.BaseEntity) BaseModel {
	return BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func (m BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}
