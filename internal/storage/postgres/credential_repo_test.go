package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/creatorly/publisher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRepository_GetMissingIsNotAnError(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewCredentialRepository(db)

	cred, err := repo.Get(context.Background(), "u1", "ws-1", "instagram")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestCredentialRepository_UpsertAndGet(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).UTC()
	cred := &models.ConnectorCredential{
		UserID:         "u1",
		WorkspaceID:    "ws-1",
		Platform:       "instagram",
		AccessToken:    "tok-1",
		RefreshToken:   "ref-1",
		ExpiresAt:      &expiry,
		PlatformUserID: "ig-42",
	}
	require.NoError(t, repo.Upsert(ctx, cred))

	got, err := repo.Get(ctx, "u1", "ws-1", "instagram")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-1", got.AccessToken)
	assert.Equal(t, "ig-42", got.PlatformUserID)

	// second upsert replaces the record in place
	cred.AccessToken = "tok-2"
	require.NoError(t, repo.Upsert(ctx, cred))

	got, err = repo.Get(ctx, "u1", "ws-1", "instagram")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-2", got.AccessToken)

	var count int64
	require.NoError(t, db.Model(&models.ConnectorCredential{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCredentialRepository_Delete(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.ConnectorCredential{
		UserID:      "u1",
		WorkspaceID: "ws-1",
		Platform:    "twitter",
		AccessToken: "tok",
	}))

	require.NoError(t, repo.Delete(ctx, "u1", "ws-1", "twitter"))

	got, err := repo.Get(ctx, "u1", "ws-1", "twitter")
	require.NoError(t, err)
	assert.Nil(t, got)

	// deleting again is a no-op
	require.NoError(t, repo.Delete(ctx, "u1", "ws-1", "twitter"))
}
