package repository

import (
	"context"
	"database/sql/driver"
	"testing"

	"caseflow.dev/caseflowlearn/internal/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCountsReportsPerStatus(t *testing.T) {
	busy, quiet := uuid.New(), uuid.New()

	db, script := dbtest.Scripted(t,
		dbtest.Query(`^SELECT topics\.id, topics\.name, topics\.description, COUNT\(case_reports\.id\) AS total, `+
			`COUNT\(case_reports\.id\) FILTER \(WHERE case_reports\.status = \$1\) AS pending, `+
			`COUNT\(case_reports\.id\) FILTER \(WHERE case_reports\.status IN \(\$2,\$3\)\) AS finished `+
			`FROM "topics" LEFT JOIN case_reports ON case_reports\.topic_id = topics\.id `+
			`GROUP BY .+ ORDER BY pending DESC,topics\.name ASC$`,
			[]string{"id", "name", "description", "total", "pending", "finished"},
			[]driver.Value{busy.String(), "Cardiology", "Heart cases", int64(7), int64(4), int64(2)},
			[]driver.Value{quiet.String(), "Dermatology", nil, int64(1), int64(0), int64(1)},
		).WithArgs("pending", "completed", "rejected"),
	)
	repo := NewTopicRepository(db)

	rows, err := repo.Load(context.Background())
	require.NoError(t, err)
	script.AssertDone(t)

	require.Len(t, rows, 2)
	assert.Equal(t, busy, rows[0].ID)
	assert.Equal(t, "Cardiology", rows[0].Name)
	require.NotNil(t, rows[0].Description)
	assert.Equal(t, "Heart cases", *rows[0].Description)
	assert.Equal(t, int64(7), rows[0].Total)
	assert.Equal(t, int64(4), rows[0].Pending)
	assert.Equal(t, int64(2), rows[0].Finished)

	assert.Equal(t, quiet, rows[1].ID)
	assert.Nil(t, rows[1].Description)
	assert.Equal(t, int64(1), rows[1].Finished)
}

func TestLoadWithoutTopics(t *testing.T) {
	db, _ := dbtest.Scripted(t,
		dbtest.Query(`FILTER`, []string{"id", "name", "description", "total", "pending", "finished"}),
	)
	repo := NewTopicRepository(db)

	rows, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}
