package mongostore

import (
	"context"
	"os"
	"testing"

	"arcade/internal/models"
	"arcade/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to MONGO_TEST_URI with a throwaway database, or skips.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping MongoDB integration tests")
	}

	ctx := context.Background()
	store, err := Connect(ctx, uri, "arcade_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func newUser(t *testing.T, repo repository.UserRepository, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "hash", Bio: models.DefaultBio, AvatarColor: models.DefaultAvatarColor}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_Mongo(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserRepository(store)
	ctx := context.Background()

	alice := newUser(t, repo, "alice")

	err := repo.Create(ctx, &models.User{Username: "other", Email: "ALICE@example.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, repository.MsgUserExists, err.Error())

	err = repo.Create(ctx, &models.User{Username: "alice", Email: "new@example.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, repository.MsgUsernameTaken, err.Error())

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	missing, err := repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	favs := repo.Favorites()
	added, err := favs.AddFront(ctx, alice.ID, models.FavoriteGame{GameID: "42", Name: "Portal"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = favs.AddFront(ctx, alice.ID, models.FavoriteGame{GameID: "42", Name: "Portal"})
	require.NoError(t, err)
	assert.False(t, added)
	_, err = favs.AddFront(ctx, models.NewID(), models.FavoriteGame{GameID: "1"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	removed, err := favs.Remove(ctx, alice.ID, "42")
	require.NoError(t, err)
	assert.True(t, removed)
	list, err := favs.List(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostRepository_Mongo(t *testing.T) {
	store := newTestStore(t)
	users := NewUserRepository(store)
	posts := NewPostRepository(store)
	comments := NewCommentRepository(store)
	ctx := context.Background()

	alice := newUser(t, users, "alice")
	bob := newUser(t, users, "bob")

	post := &models.Post{UserID: alice.ID, Content: "hello", Forum: models.ForumOffTopic}
	require.NoError(t, posts.Create(ctx, post))

	added, err := posts.Likes().AddFront(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = posts.Likes().AddFront(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, added)

	c := &models.Comment{UserID: bob.ID, Content: "nice"}
	require.NoError(t, comments.Add(ctx, post.ID, c))
	got, err := comments.Get(ctx, post.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.UserID)

	_, err = comments.Get(ctx, post.ID, models.NewID())
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	forum := models.ForumOffTopic
	listed, err := posts.List(ctx, &forum)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []models.ID{alice.ID}, listed[0].Likes)

	require.NoError(t, users.Delete(ctx, bob.ID))
	after, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Comments)

	require.NoError(t, users.Delete(ctx, alice.ID))
	_, err = posts.GetByID(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
