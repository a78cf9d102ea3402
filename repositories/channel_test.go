package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chatd/domain"
	goerrors "chatd/errors"
)

func TestChannelRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repo := NewChannelRepository(openTestDB(t))

	created, err := repo.Create("general", "everything else")
	req.NoError(err)
	req.NotEqual(uuid.Nil, created.ID)

	fetched, err := repo.Get(created.ID)
	req.NoError(err)
	req.Equal(created, fetched)

	exists, err := repo.Exists(created.ID)
	req.NoError(err)
	req.True(exists)
}

func TestChannelRepository_Duplicate_Name_Is_AlreadyExists(t *testing.T) {
	req := require.New(t)
	repo := NewChannelRepository(openTestDB(t))

	_, err := repo.Create("general", "")
	req.NoError(err)

	_, err = repo.Create("general", "second attempt")
	req.ErrorIs(err, goerrors.ErrAlreadyExists)
}

func TestChannelRepository_GetAll(t *testing.T) {
	req := require.New(t)
	repo := NewChannelRepository(openTestDB(t))

	names := []string{"general", "random", "support"}
	for _, name := range names {
		_, err := repo.Create(name, "")
		req.NoError(err)
	}

	all, err := repo.GetAll()
	req.NoError(err)
	req.ElementsMatch(names, lo.Map(all, func(c domain.TextChannel, _ int) string {
		return c.Name
	}))
}

func TestChannelRepository_Delete_Frees_The_Name(t *testing.T) {
	req := require.New(t)
	repo := NewChannelRepository(openTestDB(t))

	created, err := repo.Create("ephemeral", "")
	req.NoError(err)
	req.NoError(repo.Delete(created.ID))

	exists, err := repo.Exists(created.ID)
	req.NoError(err)
	req.False(exists)

	// Then: the name is reusable after deletion
	_, err = repo.Create("ephemeral", "")
	req.NoError(err)
}

func TestChannelRepository_Delete_Unknown_Is_NotFound(t *testing.T) {
	req := require.New(t)
	repo := NewChannelRepository(openTestDB(t))

	err := repo.Delete(uuid.New())
	req.ErrorIs(err, goerrors.ErrNotFound)
}
