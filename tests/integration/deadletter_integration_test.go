package integration

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
	dlSQLite "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/infra/db/sqlite"
)

func setupDeadLetterDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, dlSQLite.InitSQLite(db))
	return db
}

func TestDeadLetterSQLiteIntegration_AppendAndList(t *testing.T) {
	db := setupDeadLetterDB(t)
	defer db.Close()

	repo := dlSQLite.NewDeadLetterRepoSQLite(db)
	ctx := context.Background()

	rec := dlDomain.New("mobile", []byte(`{"type":"game.session.completed"}`), "registration token invalid")
	require.NoError(t, repo.Append(ctx, rec))

	// Otro canal no contamina el listado
	require.NoError(t, repo.Append(ctx, dlDomain.New("outbox", []byte(`{}`), "event type not in registry")))

	records, err := repo.List(ctx, "mobile", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, "mobile", records[0].Channel)
	assert.Equal(t, "registration token invalid", records[0].ErrorReason)
	assert.JSONEq(t, `{"type":"game.session.completed"}`, string(records[0].OriginalMessage))
}

func TestDeadLetterSQLiteIntegration_ListRespectsLimit(t *testing.T) {
	db := setupDeadLetterDB(t)
	defer db.Close()

	repo := dlSQLite.NewDeadLetterRepoSQLite(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, dlDomain.New("mobile", []byte(`{}`), "fail")))
	}

	records, err := repo.List(ctx, "mobile", 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
