package topic

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	topicDto "caseflow.dev/caseflowlearn/internal/modules/topic/dto"
	"caseflow.dev/caseflowlearn/internal/modules/topic/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TopicFinder resolves topic ids against the reference data.
type TopicFinder interface {
	FindTopics(ctx context.Context, ids []uuid.UUID) ([]entity.Topic, error)
}

type CaseFinder interface {
	FindByTopics(ctx context.Context, topicIDs []uuid.UUID) ([]*entity.CaseReport, error)
}

type TopicService interface {
	Recommendations(ctx context.Context, evaluatorID uuid.UUID) ([]topicDto.TopicRecommendation, error)
	AcceptTopics(ctx context.Context, evaluatorID uuid.UUID, req topicDto.AcceptTopicsRequest) ([]topicDto.AcceptedTopic, error)
	WithdrawTopic(ctx context.Context, evaluatorID, topicID uuid.UUID) error
	AcceptedTopics(ctx context.Context, evaluatorID uuid.UUID) ([]topicDto.AcceptedTopic, error)
	AcceptedTopicIDs(ctx context.Context, evaluatorID uuid.UUID) ([]uuid.UUID, error)
	// CasesForAcceptedTopics returns each report of the accepted topics once.
	CasesForAcceptedTopics(ctx context.Context, evaluatorID uuid.UUID) ([]caseDto.CaseReportResponse, error)
}

type topicService struct {
	repo   repository.TopicRepository
	topics TopicFinder
	cases  CaseFinder
	now    func() time.Time
}

func NewTopicService(repo repository.TopicRepository, topics TopicFinder, cases CaseFinder) TopicService {
	return &topicService{
		repo:   repo,
		topics: topics,
		cases:  cases,
		now:    time.Now,
	}
}

func (s *topicService) Recommendations(ctx context.Context, evaluatorID uuid.UUID) ([]topicDto.TopicRecommendation, error) {
	load, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	accepted, err := s.repo.AcceptedIDs(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}

	return BuildRecommendations(load, accepted), nil
}

// BuildRecommendations orders topics by pending reports, then by name.
func BuildRecommendations(load []repository.TopicLoad, accepted []uuid.UUID) []topicDto.TopicRecommendation {
	out := make([]topicDto.TopicRecommendation, 0, len(load))
	for _, l := range load {
		percent := 0
		if l.Total > 0 {
			percent = int(l.Finished * 100 / l.Total)
		}
		out = append(out, topicDto.TopicRecommendation{
			ID:               l.ID,
			Name:             l.Name,
			Description:      l.Description,
			PendingCount:     l.Pending,
			TotalCount:       l.Total,
			EvaluatedPercent: percent,
			Accepted:         slices.Contains(accepted, l.ID),
		})
	}

	slices.SortStableFunc(out, func(a, b topicDto.TopicRecommendation) int {
		if a.PendingCount != b.PendingCount {
			if a.PendingCount > b.PendingCount {
				return -1
			}
			return 1
		}
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

func (s *topicService) AcceptTopics(ctx context.Context, evaluatorID uuid.UUID, req topicDto.AcceptTopicsRequest) ([]topicDto.AcceptedTopic, error) {
	ids := make([]uuid.UUID, 0, len(req.TopicIDs))
	for _, raw := range req.TopicIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation("topic_ids must contain valid ids")
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apperror.Validation("Select at least one topic")
	}

	found, err := s.topics.FindTopics(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, apperror.Validation("One or more selected topics do not exist")
	}

	if err := s.repo.Accept(ctx, evaluatorID, ids, s.now()); err != nil {
		return nil, err
	}

	return s.AcceptedTopics(ctx, evaluatorID)
}

func (s *topicService) WithdrawTopic(ctx context.Context, evaluatorID, topicID uuid.UUID) error {
	if err := s.repo.Withdraw(ctx, evaluatorID, topicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("topic was not accepted: %w", apperror.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *topicService) AcceptedTopics(ctx context.Context, evaluatorID uuid.UUID) ([]topicDto.AcceptedTopic, error) {
	rows, err := s.repo.Accepted(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}

	out := make([]topicDto.AcceptedTopic, 0, len(rows))
	for _, row := range rows {
		item := topicDto.AcceptedTopic{ID: row.TopicID, AcceptedAt: row.AcceptedAt}
		if row.Topic != nil {
			item.Name = row.Topic.Name
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *topicService) AcceptedTopicIDs(ctx context.Context, evaluatorID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.AcceptedIDs(ctx, evaluatorID)
}

func (s *topicService) CasesForAcceptedTopics(ctx context.Context, evaluatorID uuid.UUID) ([]caseDto.CaseReportResponse, error) {
	ids, err := s.repo.AcceptedIDs(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []caseDto.CaseReportResponse{}, nil
	}

	reports, err := s.cases.FindByTopics(ctx, ids)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(reports))
	unique := make([]*entity.CaseReport, 0, len(reports))
	for _, r := range reports {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		unique = append(unique, r)
	}
	return caseDto.ToResponses(unique), nil
}
