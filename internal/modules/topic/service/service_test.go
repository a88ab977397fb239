package topic

import (
	"context"
	"testing"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	topicDto "caseflow.dev/caseflowlearn/internal/modules/topic/dto"
	"caseflow.dev/caseflowlearn/internal/modules/topic/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTopicRepo struct {
	load     []repository.TopicLoad
	accepted map[uuid.UUID][]entity.EvaluatorTopic
	names    map[uuid.UUID]string
}

func (f *fakeTopicRepo) Load(ctx context.Context) ([]repository.TopicLoad, error) {
	return f.load, nil
}

func (f *fakeTopicRepo) Accept(ctx context.Context, evaluatorID uuid.UUID, topicIDs []uuid.UUID, at time.Time) error {
	for _, id := range topicIDs {
		replaced := false
		for i, row := range f.accepted[evaluatorID] {
			if row.TopicID == id {
				f.accepted[evaluatorID][i].AcceptedAt = at
				replaced = true
			}
		}
		if !replaced {
			name := f.names[id]
			f.accepted[evaluatorID] = append(f.accepted[evaluatorID], entity.EvaluatorTopic{
				EvaluatorID: evaluatorID, TopicID: id, AcceptedAt: at, Topic: &entity.Topic{ID: id, Name: name},
			})
		}
	}
	return nil
}

func (f *fakeTopicRepo) Withdraw(ctx context.Context, evaluatorID, topicID uuid.UUID) error {
	return nil
}

func (f *fakeTopicRepo) Accepted(ctx context.Context, evaluatorID uuid.UUID) ([]entity.EvaluatorTopic, error) {
	return f.accepted[evaluatorID], nil
}

func (f *fakeTopicRepo) AcceptedIDs(ctx context.Context, evaluatorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, row := range f.accepted[evaluatorID] {
		ids = append(ids, row.TopicID)
	}
	return ids, nil
}

type fakeFinder map[uuid.UUID]entity.Topic

func (f fakeFinder) FindTopics(ctx context.Context, ids []uuid.UUID) ([]entity.Topic, error) {
	var out []entity.Topic
	for _, id := range ids {
		if t, ok := f[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// fakeCases returns the per-topic lists concatenated, so a report listed
// under two topics shows up twice.
type fakeCases map[uuid.UUID][]*entity.CaseReport

func (f fakeCases) FindByTopics(ctx context.Context, topicIDs []uuid.UUID) ([]*entity.CaseReport, error) {
	var out []*entity.CaseReport
	for _, id := range topicIDs {
		out = append(out, f[id]...)
	}
	return out, nil
}

func TestAcceptTwoTopicsYieldsUnionWithoutDuplicates(t *testing.T) {
	cardiology := entity.Topic{ID: uuid.New(), Name: "Cardiology"}
	neurology := entity.Topic{ID: uuid.New(), Name: "Neurology"}

	shared := &entity.CaseReport{ID: uuid.New(), Title: "Syncope with seizure-like activity"}
	onlyCardio := &entity.CaseReport{ID: uuid.New(), Title: "Aortic dissection"}
	onlyNeuro := &entity.CaseReport{ID: uuid.New(), Title: "Guillain-Barre"}

	repo := &fakeTopicRepo{
		accepted: map[uuid.UUID][]entity.EvaluatorTopic{},
		names:    map[uuid.UUID]string{cardiology.ID: cardiology.Name, neurology.ID: neurology.Name},
	}
	cases := fakeCases{
		cardiology.ID: {shared, onlyCardio},
		neurology.ID:  {shared, onlyNeuro},
	}
	svc := NewTopicService(repo, fakeFinder{cardiology.ID: cardiology, neurology.ID: neurology}, cases)
	evaluator := uuid.New()

	accepted, err := svc.AcceptTopics(context.Background(), evaluator, topicDto.AcceptTopicsRequest{
		TopicIDs: []string{cardiology.ID.String(), neurology.ID.String(), cardiology.ID.String()},
	})
	require.NoError(t, err)
	assert.Len(t, accepted, 2)

	got, err := svc.CasesForAcceptedTopics(context.Background(), evaluator)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{shared.ID, onlyCardio.ID, onlyNeuro.ID}, ids)
}

func TestAcceptUnknownTopicIsRejected(t *testing.T) {
	known := entity.Topic{ID: uuid.New(), Name: "Pediatrics"}
	repo := &fakeTopicRepo{accepted: map[uuid.UUID][]entity.EvaluatorTopic{}}
	svc := NewTopicService(repo, fakeFinder{known.ID: known}, fakeCases{})

	_, err := svc.AcceptTopics(context.Background(), uuid.New(), topicDto.AcceptTopicsRequest{
		TopicIDs: []string{known.ID.String(), uuid.NewString()},
	})

	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, repo.accepted)
}

func TestCasesWithoutAcceptedTopics(t *testing.T) {
	svc := NewTopicService(&fakeTopicRepo{accepted: map[uuid.UUID][]entity.EvaluatorTopic{}}, fakeFinder{}, fakeCases{})

	got, err := svc.CasesForAcceptedTopics(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBuildRecommendations(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	load := []repository.TopicLoad{
		{ID: a, Name: "Neurology", Total: 4, Pending: 1, Finished: 3},
		{ID: b, Name: "Cardiology", Total: 3, Pending: 1, Finished: 1},
		{ID: c, Name: "Pediatrics", Total: 5, Pending: 4, Finished: 0},
	}

	recs := BuildRecommendations(load, []uuid.UUID{b})

	require.Len(t, recs, 3)
	assert.Equal(t, []string{"Pediatrics", "Cardiology", "Neurology"}, []string{recs[0].Name, recs[1].Name, recs[2].Name})
	assert.Equal(t, 33, recs[1].EvaluatedPercent)
	assert.Equal(t, 75, recs[2].EvaluatedPercent)
	assert.True(t, recs[1].Accepted)
	assert.False(t, recs[0].Accepted)
}

func TestBuildRecommendationsEmptyTopic(t *testing.T) {
	recs := BuildRecommendations([]repository.TopicLoad{{ID: uuid.New(), Name: "Dermatology"}}, nil)
	assert.Equal(t, 0, recs[0].EvaluatedPercent)
}
