package repository

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"connectiu-backend/internal/config"
	"connectiu-backend/internal/database"
	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userSeq atomic.Int64

// testPool connects to TEST_DATABASE_URL, applies migrations and empties
// every table. Tests are skipped when the variable is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	cfg := config.DatabaseConfig{URL: dsn}
	require.NoError(t, database.Migrate(cfg))

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(context.Background(), `
		TRUNCATE messages, conversations, asistencias, eventos,
		         followers, comments, likes, posts, users
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, repo *UserRepository) *models.User {
	t.Helper()
	n := userSeq.Add(1)
	user := &models.User{
		Name:     fmt.Sprintf("User %d", n),
		Username: fmt.Sprintf("user%d_%d", n, time.Now().UnixNano()),
		Email:    fmt.Sprintf("user%d_%d@example.com", n, time.Now().UnixNano()),
		Password: "hash",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	first := createUser(t, users)
	dup := &models.User{Name: "x", Username: "another", Email: first.Email, Password: "hash"}

	err := users.Create(ctx, dup)
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, users)
	post := &models.Post{UserID: author.ID, Content: "hello"}
	require.NoError(t, posts.Create(ctx, post))

	liked, count, err := posts.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, count)

	liked, count, err = posts.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, count)
}

func TestDeletePostRemovesComments(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, users)
	post := &models.Post{UserID: author.ID, Content: "bye"}
	require.NoError(t, posts.Create(ctx, post))
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, UserID: author.ID, Content: "c1"}))
	_, _, err := posts.ToggleLike(ctx, post.ID, author.ID)
	require.NoError(t, err)

	require.NoError(t, posts.Delete(ctx, post.ID))

	list, err := comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = posts.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendMessageReusesConversationForEitherOrder(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	chat := NewChatRepository(db)
	ctx := context.Background()

	alice := createUser(t, users)
	bob := createUser(t, users)

	m1, err := chat.SendMessage(ctx, alice.ID, bob.ID, "hi bob")
	require.NoError(t, err)
	m2, err := chat.SendMessage(ctx, bob.ID, alice.ID, "hi alice")
	require.NoError(t, err)
	assert.Equal(t, m1.ConversationID, m2.ConversationID)

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n))
	assert.Equal(t, 1, n)

	msgs, err := chat.ListMessages(ctx, m1.ConversationID, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi bob", msgs[0].Content)
}

func TestFollowToggleAndFriends(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, users)
	b := createUser(t, users)

	following, err := follows.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	friends, err := follows.Friends(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)

	_, err = follows.Toggle(ctx, b.ID, a.ID)
	require.NoError(t, err)

	friends, err = follows.Friends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)

	following, err = follows.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFeedAggregatesLikesForViewer(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, users)
	viewer := createUser(t, users)
	older := &models.Post{UserID: author.ID, Content: "older"}
	require.NoError(t, posts.Create(ctx, older))
	newer := &models.Post{UserID: author.ID, Content: "newer"}
	require.NoError(t, posts.Create(ctx, newer))
	_, _, err := posts.ToggleLike(ctx, older.ID, viewer.ID)
	require.NoError(t, err)
	_, _, err = posts.ToggleLike(ctx, older.ID, author.ID)
	require.NoError(t, err)
	comments := NewCommentRepository(db)
	for _, text := range []string{"c1", "c2", "c3"} {
		require.NoError(t, comments.Create(ctx, &models.Comment{PostID: older.ID, UserID: viewer.ID, Content: text}))
	}

	feed, err := posts.Feed(ctx, viewer.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, newer.ID, feed[0].ID)
	assert.False(t, feed[0].Liked)
	assert.EqualValues(t, 0, feed[0].Comments)
	assert.True(t, feed[1].Liked)
	assert.EqualValues(t, 2, feed[1].Likes)
	assert.EqualValues(t, 3, feed[1].Comments)

	trending, err := posts.Trending(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, trending, 1)
	assert.Equal(t, older.ID, trending[0].ID)
	assert.False(t, trending[0].Liked)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%ana%`, containsPattern("ana"))
	assert.Equal(t, `%\%%`, containsPattern("%"))
	assert.Equal(t, `%a\_b%`, containsPattern("a_b"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	db := testPool(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, users)
	createUser(t, users)

	found, err := users.Search(ctx, "%", 20)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = users.Search(ctx, "_", 20)
	require.NoError(t, err)
	assert.Len(t, found, 2, "usernames contain a literal underscore")

	found, err = users.Search(ctx, "USER", 20)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
