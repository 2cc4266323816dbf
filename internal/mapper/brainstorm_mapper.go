package mapper

import (
	"encoding/json"

	"brainstorm-be/internal/model"
	"brainstorm-be/pkg/state"

	"gorm.io/datatypes"
)

type BrainstormMapper struct{}

func NewBrainstormMapper() *BrainstormMapper {
	return &BrainstormMapper{}
}

func (m *BrainstormMapper) ToModel(s *state.BrainstormSession) (*model.BrainstormRecord, error) {
	branches, err := json.Marshal(s.Branches)
	if err != nil {
		return nil, err
	}
	return &model.BrainstormRecord{
		ID:               s.ID,
		Request:          s.Request,
		BrowserSessionID: s.BrowserSessionID,
		BranchOrder:      datatypes.JSONSlice[string](s.BranchOrder),
		Branches:         datatypes.JSON(branches),
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}, nil
}

func (m *BrainstormMapper) ToState(r *model.BrainstormRecord) (*state.BrainstormSession, error) {
	s := &state.BrainstormSession{
		ID:               r.ID,
		Request:          r.Request,
		BrowserSessionID: r.BrowserSessionID,
		BranchOrder:      []string(r.BranchOrder),
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Branches, &s.Branches); err != nil {
		return nil, err
	}
	return s, nil
}
