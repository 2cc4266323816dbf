package service

import (
	"context"
	"errors"

	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/mapper"
	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/hostsession"
	"brainstorm-be/pkg/processor"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"
)

type IBrainstormService interface {
	Create(ctx context.Context, host string, req *dto.CreateBrainstormRequest) (*dto.CreateBrainstormResponse, error)
	PushBranchQuestion(ctx context.Context, id, branchId string, req *dto.PushBranchQuestionRequest) (*dto.PushQuestionResponse, error)
	CompleteBranch(ctx context.Context, id, branchId string, req *dto.CompleteBranchRequest) error
	GetBranchStatus(ctx context.Context, id, branchId string) (*dto.BranchStatusResponse, error)
	GetSessionSummary(ctx context.Context, id string) (*dto.SessionSummaryResponse, error)
	End(ctx context.Context, id string) (*dto.SessionSummaryResponse, error)
}

// BranchLocker hands out the per-branch lock the answer pipeline holds while
// it evaluates, so tool calls and answers never interleave on one branch.
type BranchLocker interface {
	LockBranch(brainstormID, branchID string) (unlock func())
}

type brainstormService struct {
	store    *session.Store
	states   *state.Manager
	branches BranchLocker
	router   IAnswerRouter
	registry *hostsession.Registry
	events   *BrainstormEventPublisher
	mapper   *mapper.ToolMapper
	logger   logger.ILogger
}

func NewBrainstormService(
	store *session.Store,
	states *state.Manager,
	branches BranchLocker,
	router IAnswerRouter,
	registry *hostsession.Registry,
	events *BrainstormEventPublisher,
	log logger.ILogger,
) IBrainstormService {
	return &brainstormService{
		store:    store,
		states:   states,
		branches: branches,
		router:   router,
		registry: registry,
		events:   events,
		mapper:   mapper.NewToolMapper(),
		logger:   log,
	}
}

// Create opens a browser session, pushes every branch's first question and
// records the brainstorm. Nothing is left behind when a step fails.
func (s *brainstormService) Create(ctx context.Context, host string, req *dto.CreateBrainstormRequest) (*dto.CreateBrainstormResponse, error) {
	if len(req.Branches) == 0 {
		return nil, apperror.InvalidInput("CreateBrainstorm", "", "at least one branch is required")
	}
	for _, b := range req.Branches {
		if err := session.ValidateQuestion("CreateBrainstorm", b.InitialQuestion.Type, b.InitialQuestion.Config); err != nil {
			return nil, apperror.InvalidInput("CreateBrainstorm", b.Id, err.Error())
		}
	}

	browserID, err := s.store.StartSession(ctx, session.Meta{Title: req.Request, HostSessionID: host})
	if err != nil {
		return nil, err
	}

	inputs := make([]state.BranchInput, 0, len(req.Branches))
	acks := make([]dto.BranchAck, 0, len(req.Branches))
	for _, b := range req.Branches {
		config := processor.ScopeConfig(b.Scope, b.InitialQuestion.Config)
		qid, err := s.store.PushQuestion(ctx, browserID, b.InitialQuestion.Type, config)
		if err != nil {
			s.abandon(ctx, browserID)
			return nil, err
		}
		inputs = append(inputs, state.BranchInput{
			ID:    b.Id,
			Scope: b.Scope,
			InitialQuestion: state.BranchQuestion{
				ID:     qid,
				Type:   b.InitialQuestion.Type,
				Text:   processor.QuestionText(config),
				Config: config,
			},
		})
		acks = append(acks, dto.BranchAck{BranchId: b.Id, QuestionId: qid})
	}

	id, err := s.states.CreateBrainstorm(ctx, req.Request, browserID, inputs)
	if err != nil {
		s.abandon(ctx, browserID)
		return nil, err
	}

	s.router.Bind(browserID, id)
	s.registry.Track(host, hostsession.Entry{Kind: hostsession.KindBrainstorm, ID: id})

	s.logger.Info("BrainstormService", "Brainstorm created", map[string]interface{}{
		"brainstorm_id":      id,
		"browser_session_id": browserID,
		"branches":           len(inputs),
	})
	return &dto.CreateBrainstormResponse{SessionId: id, BrowserSessionId: browserID, Branches: acks}, nil
}

func (s *brainstormService) abandon(ctx context.Context, browserID string) {
	if err := s.store.EndSession(ctx, browserID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Warn("BrainstormService", "Failed to end abandoned browser session", map[string]interface{}{"session_id": browserID, "error": err.Error()})
	}
}

func (s *brainstormService) load(ctx context.Context, op, id string) (*state.BrainstormSession, error) {
	bs, err := s.states.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if bs == nil {
		return nil, apperror.NotFound(op, id, "brainstorm session not found")
	}
	return bs, nil
}

func (s *brainstormService) branch(ctx context.Context, op, id, branchId string) (*state.BrainstormSession, *state.Branch, error) {
	bs, err := s.load(ctx, op, id)
	if err != nil {
		return nil, nil, err
	}
	b, ok := bs.Branches[branchId]
	if !ok {
		return nil, nil, apperror.NotFound(op, branchId, "branch not found")
	}
	return bs, b, nil
}

func (s *brainstormService) PushBranchQuestion(ctx context.Context, id, branchId string, req *dto.PushBranchQuestionRequest) (*dto.PushQuestionResponse, error) {
	const op = "PushBranchQuestion"
	unlock := s.branches.LockBranch(id, branchId)
	defer unlock()

	bs, b, err := s.branch(ctx, op, id, branchId)
	if err != nil {
		return nil, err
	}
	if b.Status == state.BranchDone {
		return nil, apperror.InvalidInput(op, branchId, "branch is already done")
	}
	q := req.Question
	if err := session.ValidateQuestion(op, q.Type, q.Config); err != nil {
		return nil, err
	}

	config := processor.ScopeConfig(b.Scope, q.Config)
	qid, err := s.store.PushQuestion(ctx, bs.BrowserSessionID, q.Type, config)
	if err != nil {
		return nil, err
	}
	err = s.states.AddQuestionToBranch(ctx, id, branchId, state.BranchQuestion{
		ID:     qid,
		Type:   q.Type,
		Text:   processor.QuestionText(config),
		Config: config,
	})
	if err != nil {
		return nil, err
	}
	s.events.QuestionPushed(ctx, id, branchId, qid)
	return &dto.PushQuestionResponse{QuestionId: qid}, nil
}

// CompleteBranch is a no-op on a branch that is already done.
func (s *brainstormService) CompleteBranch(ctx context.Context, id, branchId string, req *dto.CompleteBranchRequest) error {
	unlock := s.branches.LockBranch(id, branchId)
	defer unlock()

	changed, err := s.states.CompleteBranch(ctx, id, branchId, req.Finding)
	if err != nil {
		return err
	}
	if changed {
		s.events.BranchCompleted(ctx, id, branchId, req.Finding)
	}
	return nil
}

func (s *brainstormService) GetBranchStatus(ctx context.Context, id, branchId string) (*dto.BranchStatusResponse, error) {
	_, b, err := s.branch(ctx, "GetBranchStatus", id, branchId)
	if err != nil {
		return nil, err
	}
	out := s.mapper.ToBranchStatus(b)
	return &out, nil
}

func (s *brainstormService) GetSessionSummary(ctx context.Context, id string) (*dto.SessionSummaryResponse, error) {
	bs, err := s.load(ctx, "GetSessionSummary", id)
	if err != nil {
		return nil, err
	}
	out := s.mapper.ToSummary(bs)
	return &out, nil
}

// End returns the final summary and tears down the brainstorm state, its
// browser session and its host association.
func (s *brainstormService) End(ctx context.Context, id string) (*dto.SessionSummaryResponse, error) {
	bs, err := s.load(ctx, "EndBrainstorm", id)
	if err != nil {
		return nil, err
	}
	summary := s.mapper.ToSummary(bs)

	if err := s.states.DeleteSession(ctx, id); err != nil {
		return nil, err
	}
	s.router.Unbind(bs.BrowserSessionID)
	s.abandon(ctx, bs.BrowserSessionID)
	s.registry.Untrack(hostsession.Entry{Kind: hostsession.KindBrainstorm, ID: id})

	findings := make(map[string]string, len(bs.Branches))
	for _, b := range bs.Branches {
		if b.Finding != nil {
			findings[b.ID] = *b.Finding
		}
	}
	s.events.SessionEnded(ctx, id, findings)

	s.logger.Info("BrainstormService", "Brainstorm ended", map[string]interface{}{"brainstorm_id": id})
	return &summary, nil
}
