package implementation

import (
	"context"
	"os"
	"testing"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/database"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrainstormRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	repo, err := NewBrainstormRepository(db)
	require.NoError(t, err)

	ctx := context.Background()
	mgr := state.NewManager(repo, logger.NewNopLogger())
	id, err := mgr.CreateBrainstorm(ctx, "Pick a database", "ses_pg", []state.BranchInput{{
		ID:    "engine",
		Scope: "Storage engine",
		InitialQuestion: state.BranchQuestion{
			ID: "q1", Type: session.TypeAskText, Text: "Which engine?",
			Config: session.QuestionConfig{"question": "Which engine?"},
		},
	}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Delete(ctx, id) })

	require.NoError(t, mgr.RecordAnswer(ctx, id, "q1", []byte(`{"text":"Postgres"}`)))
	changed, err := mgr.CompleteBranch(ctx, id, "engine", "Postgres")
	require.NoError(t, err)
	assert.True(t, changed)

	// a fresh manager reads only what the table holds
	loaded, err := state.NewManager(repo, logger.NewNopLogger()).GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "ses_pg", loaded.BrowserSessionID)
	assert.Equal(t, state.BranchDone, loaded.Branches["engine"].Status)
	assert.Equal(t, "Postgres", *loaded.Branches["engine"].Finding)
	assert.JSONEq(t, `{"text":"Postgres"}`, string(loaded.Branches["engine"].Questions[0].Answer))
	assert.Equal(t, int64(3), loaded.Version)

	stale := *loaded
	stale.Version = loaded.Version
	assert.ErrorIs(t, repo.Save(ctx, &stale), state.ErrVersionConflict)

	require.NoError(t, mgr.DeleteSession(ctx, id))
	missing, err := repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
