package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBlobRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBlobRepository()

	_, ok, err := repo.Get(ctx, "archived_artworks")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "archived_artworks", "[]"))
	require.NoError(t, repo.Set(ctx, "archived_artworks", `[{"ArchiveID":"a1"}]`))

	value, ok, err := repo.Get(ctx, "archived_artworks")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"ArchiveID":"a1"}]`, value)

	require.Error(t, repo.Set(ctx, " ", "x"))
}

func TestMemoryBlobRepositoryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryBlobRepository()
	require.ErrorIs(t, repo.Set(ctx, "k", "v"), context.Canceled)
	_, _, err := repo.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}
