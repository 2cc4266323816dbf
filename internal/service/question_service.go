package service

import (
	"context"
	"time"

	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/mapper"
	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/hostsession"
	"brainstorm-be/pkg/session"
)

type IQuestionService interface {
	StartSession(ctx context.Context, host string, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	PushQuestion(ctx context.Context, sessionId string, req *dto.PushQuestionRequest) (*dto.PushQuestionResponse, error)
	GetNextAnswer(ctx context.Context, sessionId string, q dto.WaitQuery) (*dto.AnswerResponse, error)
	GetAnswer(ctx context.Context, sessionId, questionId string, q dto.WaitQuery) (*dto.AnswerResponse, error)
	ListQuestions(ctx context.Context, sessionId string) ([]dto.QuestionResponse, error)
	EndSession(ctx context.Context, sessionId string) error
}

type questionService struct {
	store    *session.Store
	registry *hostsession.Registry
	mapper   *mapper.ToolMapper
	logger   logger.ILogger
}

func NewQuestionService(store *session.Store, registry *hostsession.Registry, log logger.ILogger) IQuestionService {
	return &questionService{
		store:    store,
		registry: registry,
		mapper:   mapper.NewToolMapper(),
		logger:   log,
	}
}

func (s *questionService) StartSession(ctx context.Context, host string, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	id, err := s.store.StartSession(ctx, session.Meta{Title: req.Title, HostSessionID: host})
	if err != nil {
		return nil, err
	}
	s.registry.Track(host, hostsession.Entry{Kind: hostsession.KindSession, ID: id})
	return &dto.StartSessionResponse{SessionId: id}, nil
}

func (s *questionService) PushQuestion(ctx context.Context, sessionId string, req *dto.PushQuestionRequest) (*dto.PushQuestionResponse, error) {
	id, err := s.store.PushQuestion(ctx, sessionId, req.Type, req.Config)
	if err != nil {
		return nil, err
	}
	return &dto.PushQuestionResponse{QuestionId: id}, nil
}

func waitOptions(q dto.WaitQuery) session.WaitOptions {
	// zero timeout means the store default
	return session.WaitOptions{Block: q.Block, Timeout: time.Duration(q.TimeoutMs) * time.Millisecond}
}

func (s *questionService) GetNextAnswer(ctx context.Context, sessionId string, q dto.WaitQuery) (*dto.AnswerResponse, error) {
	res, err := s.store.GetNextAnswer(ctx, sessionId, waitOptions(q))
	if err != nil {
		return nil, err
	}
	out := s.mapper.ToAnswer(res)
	return &out, nil
}

func (s *questionService) GetAnswer(ctx context.Context, sessionId, questionId string, q dto.WaitQuery) (*dto.AnswerResponse, error) {
	res, err := s.store.GetAnswer(ctx, sessionId, questionId, waitOptions(q))
	if err != nil {
		return nil, err
	}
	out := s.mapper.ToAnswer(res)
	return &out, nil
}

func (s *questionService) ListQuestions(ctx context.Context, sessionId string) ([]dto.QuestionResponse, error) {
	qs, err := s.store.ListQuestions(sessionId)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToQuestions(qs), nil
}

func (s *questionService) EndSession(ctx context.Context, sessionId string) error {
	if err := s.store.EndSession(ctx, sessionId); err != nil {
		return err
	}
	s.registry.Untrack(hostsession.Entry{Kind: hostsession.KindSession, ID: sessionId})
	return nil
}
