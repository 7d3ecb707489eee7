package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
)

// runRepositoryContract checks the behaviour every ProfileRepository shares.
// newRepo must return repositories over the same backing storage.
func runRepositoryContract(t *testing.T, newRepo func() ports.ProfileRepository) {
	ctx := context.Background()

	t.Run("EmptyLoad", func(t *testing.T) {
		snap, err := newRepo().Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Profiles)
	})

	t.Run("RoundTripThroughStore", func(t *testing.T) {
		s, err := Open(ctx, newRepo())
		require.NoError(t, err)

		id1, err := s.Add(ctx, "10.0.0.1", 22, "op", entities.FamilyGenericLine)
		require.NoError(t, err)
		id2, err := s.Add(ctx, "core-sw", 0, "admin", entities.FamilyPrivilegedEscalate)
		require.NoError(t, err)
		removed, err := s.Remove(ctx, id1)
		require.NoError(t, err)
		require.True(t, removed)

		reopened, err := Open(ctx, newRepo())
		require.NoError(t, err)
		list := reopened.List()
		require.Len(t, list, 1)
		assert.Equal(t, entities.Profile{
			ID:       id2,
			Host:     "core-sw",
			Port:     22,
			Username: "admin",
			Family:   entities.FamilyPrivilegedEscalate,
		}, list[0])

		// ids are never reused across reopen
		id3, err := reopened.Add(ctx, "10.0.0.3", 23, "op", entities.FamilyUnknown)
		require.NoError(t, err)
		assert.Greater(t, id3, id2)
	})
}
