package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"caseflow.dev/caseflowlearn/internal/dbtest"
	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const claimReport = `^UPDATE "case_reports" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status = \$4$`

func TestStartClaimsPendingReport(t *testing.T) {
	report, evaluator := uuid.New(), uuid.New()

	db, script := dbtest.Scripted(t,
		dbtest.Exec(claimReport, 1).WithArgs("under_review", dbtest.Any, report.String(), "pending"),
		dbtest.Exec(`^INSERT INTO "evaluations"`, 1),
	)
	repo := NewEvaluationRepository(db)

	ev, err := repo.Start(context.Background(), report, evaluator)
	require.NoError(t, err)
	script.AssertDone(t)

	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, report, ev.CaseReportID)
	assert.Equal(t, evaluator, ev.EvaluatorID)
	assert.Equal(t, entity.StatusUnderReview, ev.Status)
	assert.Equal(t, []string{"BEGIN", "UPDATE", "INSERT", "COMMIT"}, script.Events())
}

func TestStartOnClaimedReportConflicts(t *testing.T) {
	report := uuid.New()

	db, script := dbtest.Scripted(t,
		dbtest.Exec(claimReport, 0),
		dbtest.Query(`^SELECT count\(\*\) FROM "case_reports" WHERE id = \$1$`,
			[]string{"count"}, []driver.Value{int64(1)}).WithArgs(report.String()),
	)
	repo := NewEvaluationRepository(db)

	ev, err := repo.Start(context.Background(), report, uuid.New())
	require.ErrorIs(t, err, ErrStateChanged)
	assert.Nil(t, ev)
	script.AssertDone(t)
	assert.Equal(t, []string{"BEGIN", "UPDATE", "SELECT", "ROLLBACK"}, script.Events())
}

func TestStartOnMissingReportIsNotFound(t *testing.T) {
	db, script := dbtest.Scripted(t,
		dbtest.Exec(claimReport, 0),
		dbtest.Query(`^SELECT count\(\*\) FROM "case_reports"`, []string{"count"}, []driver.Value{int64(0)}),
	)
	repo := NewEvaluationRepository(db)

	_, err := repo.Start(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, []string{"BEGIN", "UPDATE", "SELECT", "ROLLBACK"}, script.Events())
}

func TestAbandonReturnsReportToPending(t *testing.T) {
	ev := &entity.Evaluation{ID: uuid.New(), CaseReportID: uuid.New()}

	db, script := dbtest.Scripted(t,
		dbtest.Exec(`^DELETE FROM "evaluations" WHERE id = \$1 AND status = \$2$`, 1).
			WithArgs(ev.ID.String(), "under_review"),
		dbtest.Exec(claimReport, 1).WithArgs("pending", dbtest.Any, ev.CaseReportID.String(), "under_review"),
	)
	repo := NewEvaluationRepository(db)

	require.NoError(t, repo.Abandon(context.Background(), ev))
	script.AssertDone(t)
	assert.Equal(t, []string{"BEGIN", "DELETE", "UPDATE", "COMMIT"}, script.Events())
}

func TestAbandonFinishedEvaluationConflicts(t *testing.T) {
	db, script := dbtest.Scripted(t,
		dbtest.Exec(`^DELETE FROM "evaluations"`, 0),
	)
	repo := NewEvaluationRepository(db)

	err := repo.Abandon(context.Background(), &entity.Evaluation{ID: uuid.New(), CaseReportID: uuid.New()})
	require.ErrorIs(t, err, ErrStateChanged)
	assert.Equal(t, []string{"BEGIN", "DELETE", "ROLLBACK"}, script.Events())
}

const releaseOrphans = `^UPDATE "case_reports" SET "status"=\$1,"updated_at"=\$2 WHERE status = \$3 AND NOT EXISTS ` +
	`\(SELECT 1 FROM "evaluations" WHERE evaluations\.case_report_id = case_reports\.id AND evaluations\.status = \$4\)$`

func TestReleaseByEvaluator(t *testing.T) {
	evaluator := uuid.New()

	db, script := dbtest.Scripted(t,
		dbtest.Exec(`^DELETE FROM "evaluations" WHERE evaluator_id = \$1 AND status = \$2$`, 2).
			WithArgs(evaluator.String(), "under_review"),
		dbtest.Exec(releaseOrphans, 2).WithArgs("pending", dbtest.Any, "under_review", "under_review"),
	)
	repo := NewEvaluationRepository(db)

	released, err := repo.ReleaseByEvaluator(context.Background(), evaluator)
	require.NoError(t, err)
	script.AssertDone(t)
	assert.Equal(t, int64(2), released)
	assert.Equal(t, []string{"BEGIN", "DELETE", "UPDATE", "COMMIT"}, script.Events())
}

func TestReleaseStale(t *testing.T) {
	before := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	db, script := dbtest.Scripted(t,
		dbtest.Exec(`^DELETE FROM "evaluations" WHERE status = \$1 AND updated_at < \$2$`, 1).
			WithArgs("under_review", before),
		dbtest.Exec(releaseOrphans, 1),
	)
	repo := NewEvaluationRepository(db)

	released, err := repo.ReleaseStale(context.Background(), before)
	require.NoError(t, err)
	script.AssertDone(t)
	assert.Equal(t, int64(1), released)
}

func TestReleaseStaleRollsBackOnFailure(t *testing.T) {
	db, script := dbtest.Scripted(t,
		dbtest.Exec(`^DELETE FROM "evaluations"`, 0),
		dbtest.Exec(releaseOrphans, 0).Fails(assert.AnError),
	)
	repo := NewEvaluationRepository(db)

	_, err := repo.ReleaseStale(context.Background(), time.Now())
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"BEGIN", "DELETE", "UPDATE", "ROLLBACK"}, script.Events())
}
