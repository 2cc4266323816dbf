package implementation

import (
	"context"
	"errors"

	"brainstorm-be/internal/mapper"
	"brainstorm-be/internal/model"
	"brainstorm-be/pkg/state"

	"gorm.io/gorm"
)

// BrainstormRepositoryImpl keeps brainstorm records in Postgres.
type BrainstormRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BrainstormMapper
}

func NewBrainstormRepository(db *gorm.DB) (*BrainstormRepositoryImpl, error) {
	if err := db.AutoMigrate(&model.BrainstormRecord{}); err != nil {
		return nil, err
	}
	return &BrainstormRepositoryImpl{
		db:     db,
		mapper: mapper.NewBrainstormMapper(),
	}, nil
}

func (r *BrainstormRepositoryImpl) Load(ctx context.Context, id string) (*state.BrainstormSession, error) {
	var m model.BrainstormRecord
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToState(&m)
}

func (r *BrainstormRepositoryImpl) Save(ctx context.Context, s *state.BrainstormSession) error {
	m, err := r.mapper.ToModel(s)
	if err != nil {
		return err
	}
	if m.Version <= 1 {
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return state.ErrVersionConflict
			}
			return err
		}
		return nil
	}

	// conditional on the version this write was based on
	res := r.db.WithContext(ctx).
		Model(&model.BrainstormRecord{}).
		Where("id = ? AND version = ?", m.ID, m.Version-1).
		Updates(map[string]interface{}{
			"request":            m.Request,
			"browser_session_id": m.BrowserSessionID,
			"branch_order":       m.BranchOrder,
			"branches":           m.Branches,
			"version":            m.Version,
			"updated_at":         m.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return state.ErrVersionConflict
	}
	return nil
}

func (r *BrainstormRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.BrainstormRecord{}, "id = ?", id).Error
}
