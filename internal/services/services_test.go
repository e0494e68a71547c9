package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"connectiu-backend/internal/models"
	"connectiu-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	online map[int64]bool
	sent   map[int64][]WSMessage
}

func newRecordingPublisher(online ...int64) *recordingPublisher {
	p := &recordingPublisher{online: make(map[int64]bool), sent: make(map[int64][]WSMessage)}
	for _, id := range online {
		p.online[id] = true
	}
	return p
}

func (p *recordingPublisher) IsOnline(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *recordingPublisher) SendToUser(userID int64, message WSMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[userID] {
		return fmt.Errorf("user %d is not connected", userID)
	}
	p.sent[userID] = append(p.sent[userID], message)
	return nil
}

func (p *recordingPublisher) messages(userID int64) []WSMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WSMessage(nil), p.sent[userID]...)
}

type recordingNotifier struct {
	tokens chan string
}

func (n *recordingNotifier) Notify(_ context.Context, deviceToken, _, _ string) error {
	n.tokens <- deviceToken
	return nil
}

type testEnv struct {
	mem      *testutil.Memory
	users    *UserService
	posts    *PostService
	comments *CommentService
	follows  *FollowService
	events   *EventService
	chat     *ChatService
	pub      *recordingPublisher
	push     *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := testutil.NewMemory()
	pub := newRecordingPublisher()
	push := &recordingNotifier{tokens: make(chan string, 4)}
	return &testEnv{
		mem: mem,
		users: NewUserService(mem.Users(), mem.Posts(), mem.Follows(), testSecret, time.Hour).
			WithBcryptCost(bcrypt.MinCost),
		posts:    NewPostService(mem.Posts()),
		comments: NewCommentService(mem.Comments(), mem.Posts()),
		follows:  NewFollowService(mem.Follows(), mem.Users(), pub),
		events:   NewEventService(mem.Events()),
		chat:     NewChatService(mem.Chat(), mem.Users(), pub, push),
		pub:      pub,
		push:     push,
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), RegisterRequest{
		Name:     "Name " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func requireAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestRegisterThenLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, RegisterRequest{
		Name:     "Ana",
		Username: "ana",
		Email:    "  Ana@Example.com ",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.Password)

	resp, err := env.users.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	id, err := env.users.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "bob")

	_, err := env.users.Login(context.Background(), LoginRequest{Email: "bob@example.com", Password: "wrong-pass"})
	requireAppError(t, err, models.CodeUnauthorized)

	_, err = env.users.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	requireAppError(t, err, models.CodeUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing name", RegisterRequest{Username: "u", Email: "u@example.com", Password: "secret123"}},
		{"bad email", RegisterRequest{Name: "U", Username: "u", Email: "not-an-email", Password: "secret123"}},
		{"short password", RegisterRequest{Name: "U", Username: "u", Email: "u@example.com", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Register(ctx, tt.req)
			requireAppError(t, err, models.CodeValidation)
		})
	}
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "carla")

	_, err := env.users.Register(context.Background(), RegisterRequest{
		Name: "Other", Username: "carla", Email: "other@example.com", Password: "secret123",
	})
	requireAppError(t, err, models.CodeConflict)
}

func TestValidateJWTRejectsForeignSecret(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "dan")

	other := NewUserService(nil, nil, nil, "another-secret", time.Hour)
	token, err := other.GenerateJWT(user)
	require.NoError(t, err)

	_, err = env.users.ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "eve")

	expired := NewUserService(nil, nil, nil, testSecret, -time.Minute)
	token, err := expired.GenerateJWT(user)
	require.NoError(t, err)

	_, err = env.users.ValidateJWT(token)
	assert.Error(t, err)
}

func TestUpdateProfileOnlySelf(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "alice")
	b := env.register(t, "bruno")
	bio := "hello"

	_, err := env.users.UpdateProfile(context.Background(), b.ID, a.ID, models.ProfileUpdate{Bio: &bio})
	requireAppError(t, err, models.CodeForbidden)

	updated, err := env.users.UpdateProfile(context.Background(), a.ID, a.ID, models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "hello", *updated.Bio)
}

func TestGetProfileCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")

	_, err := env.follows.Toggle(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, err = env.posts.CreatePost(ctx, a.ID, PostRequest{Content: "first"})
	require.NoError(t, err)

	profile, err := env.users.GetProfile(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, profile.Followers)
	assert.EqualValues(t, 0, profile.Following)
	assert.Len(t, profile.Posts, 1)
	assert.Empty(t, profile.User.Email)

	own, err := env.users.GetProfile(ctx, a.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Email, own.User.Email)

	_, err = env.users.GetProfile(ctx, 999, 0)
	requireAppError(t, err, models.CodeNotFound)
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "martina")

	_, err := env.users.SearchUsers(context.Background(), "  ")
	requireAppError(t, err, models.CodeValidation)

	found, err := env.users.SearchUsers(context.Background(), "MART")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSuggestionsExcludeSelfAndFollowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")
	c := env.register(t, "carla")

	_, err := env.follows.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)

	suggestions, err := env.users.Suggestions(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, c.ID, suggestions[0].ID)
}

func TestToggleLikeTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "liker")
	post, err := env.posts.CreatePost(ctx, user.ID, PostRequest{Content: "like me"})
	require.NoError(t, err)

	res, err := env.posts.ToggleLike(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.EqualValues(t, 1, res.Likes)

	res, err = env.posts.ToggleLike(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.EqualValues(t, 0, res.Likes)

	_, err = env.posts.ToggleLike(ctx, user.ID, 404)
	requireAppError(t, err, models.CodeNotFound)
}

func TestCreatePostRequiresContent(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "writer")

	_, err := env.posts.CreatePost(context.Background(), user.ID, PostRequest{Content: "   "})
	requireAppError(t, err, models.CodeValidation)
}

func TestEditAndDeleteRequireOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	other := env.register(t, "other")
	post, err := env.posts.CreatePost(ctx, owner.ID, PostRequest{Content: "mine"})
	require.NoError(t, err)

	_, err = env.posts.UpdatePost(ctx, other.ID, post.ID, PostRequest{Content: "hijack"})
	requireAppError(t, err, models.CodeForbidden)

	err = env.posts.DeletePost(ctx, other.ID, post.ID)
	requireAppError(t, err, models.CodeForbidden)

	updated, err := env.posts.UpdatePost(ctx, owner.ID, post.ID, PostRequest{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	err = env.posts.DeletePost(ctx, owner.ID, 12345)
	requireAppError(t, err, models.CodeNotFound)
}

func TestDeletePostRemovesComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	post, err := env.posts.CreatePost(ctx, owner.ID, PostRequest{Content: "short lived"})
	require.NoError(t, err)
	_, err = env.comments.AddComment(ctx, owner.ID, post.ID, "first!")
	require.NoError(t, err)
	require.Equal(t, 1, env.mem.CommentCount())

	require.NoError(t, env.posts.DeletePost(ctx, owner.ID, post.ID))

	assert.Equal(t, 0, env.mem.CommentCount())
	comments, err := env.comments.ListComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestAddCommentUnknownPost(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "commenter")

	_, err := env.comments.AddComment(context.Background(), user.ID, 77, "hello")
	requireAppError(t, err, models.CodeNotFound)

	_, err = env.comments.AddComment(context.Background(), user.ID, 77, "")
	requireAppError(t, err, models.CodeValidation)
}

func TestSelfFollowRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "narciso")

	_, err := env.follows.Toggle(context.Background(), user.ID, user.ID)
	requireAppError(t, err, models.CodeValidation)

	following, err := env.follows.IsFollowing(context.Background(), user.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowToggleNotifiesTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")
	env.pub.online[b.ID] = true

	following, err := env.follows.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	sent := env.pub.messages(b.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, EventNewFollower, sent[0].Type)

	following, err = env.follows.Toggle(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, following)
	assert.Len(t, env.pub.messages(b.ID), 1)

	_, err = env.follows.Toggle(ctx, a.ID, 999)
	requireAppError(t, err, models.CodeNotFound)
}

func TestFriendsAreMutualFollows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")
	c := env.register(t, "carla")

	for _, pair := range [][2]int64{{a.ID, b.ID}, {b.ID, a.ID}, {a.ID, c.ID}} {
		_, err := env.follows.Toggle(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	friends, err := env.follows.Friends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, b.ID, friends[0].ID)

	require.NoError(t, env.follows.Unfollow(ctx, a.ID, b.ID))
	friends, err = env.follows.Friends(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestCreateEventAndToggleAttendance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "host")

	_, err := env.events.CreateEvent(ctx, user.ID, EventRequest{Titulo: "Meetup", Lugar: "Aula 1"})
	requireAppError(t, err, models.CodeValidation)

	_, err = env.events.CreateEvent(ctx, user.ID, EventRequest{Titulo: "Meetup", Lugar: "Aula 1", Fecha: "tomorrow"})
	requireAppError(t, err, models.CodeValidation)

	event, err := env.events.CreateEvent(ctx, user.ID, EventRequest{Titulo: "Meetup", Lugar: "Aula 1", Fecha: "2025-05-01T18:30"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 18, 30, 0, 0, time.UTC), event.Fecha)

	res, err := env.events.ToggleAttendance(ctx, user.ID, event.ID)
	require.NoError(t, err)
	assert.True(t, res.Asistiendo)
	assert.EqualValues(t, 1, res.AsistentesCount)

	list, err := env.events.ListEvents(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Asistiendo)
	assert.Equal(t, user.Name, list[0].CreadorNombre)

	res, err = env.events.ToggleAttendance(ctx, user.ID, event.ID)
	require.NoError(t, err)
	assert.False(t, res.Asistiendo)
	assert.EqualValues(t, 0, res.AsistentesCount)

	_, err = env.events.ToggleAttendance(ctx, user.ID, 999)
	requireAppError(t, err, models.CodeNotFound)
}

func TestEventDateAcceptsRFC3339(t *testing.T) {
	got, err := parseEventDate("2025-05-01T18:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, 21, got.UTC().Hour())
}

func TestConversationReusedForEitherOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")

	m1, err := env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: b.ID, Content: "hola"})
	require.NoError(t, err)
	m2, err := env.chat.SendMessage(ctx, b.ID, SendMessageRequest{ReceiverID: a.ID, Content: "que tal"})
	require.NoError(t, err)

	assert.Equal(t, m1.ConversationID, m2.ConversationID)
	assert.Equal(t, 1, env.mem.ConversationCount())

	history, err := env.chat.History(ctx, a.ID, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hola", history[0].Content)

	convs, err := env.chat.Conversations(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, a.ID, convs[0].OtherUser.ID)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "que tal", convs[0].LastMessage.Content)
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")

	_, err := env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: a.ID, Content: "me"})
	requireAppError(t, err, models.CodeValidation)

	_, err = env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: 999, Content: "anyone?"})
	requireAppError(t, err, models.CodeNotFound)

	_, err = env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: 999, Content: " "})
	requireAppError(t, err, models.CodeValidation)
}

func TestConversationMessagesRequireParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")
	c := env.register(t, "carla")

	msg, err := env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: b.ID, Content: "private"})
	require.NoError(t, err)

	_, err = env.chat.ConversationMessages(ctx, c.ID, msg.ConversationID)
	requireAppError(t, err, models.CodeForbidden)

	_, err = env.chat.History(ctx, c.ID, a.ID, b.ID)
	requireAppError(t, err, models.CodeForbidden)

	_, err = env.chat.ConversationMessages(ctx, a.ID, 999)
	requireAppError(t, err, models.CodeNotFound)

	msgs, err := env.chat.ConversationMessages(ctx, b.ID, msg.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	empty, err := env.chat.History(ctx, a.ID, a.ID, c.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSendMessageDeliversRealtimeOrPush(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "alice")
	b := env.register(t, "bruno")

	env.pub.online[b.ID] = true
	_, err := env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: b.ID, Content: "online"})
	require.NoError(t, err)
	sent := env.pub.messages(b.ID)
	require.Len(t, sent, 1)
	assert.Equal(t, EventNewMessage, sent[0].Type)
	assert.Equal(t, a.ID, sent[0].SenderID)

	env.pub.online[b.ID] = false
	require.NoError(t, env.users.UpdatePushToken(ctx, b.ID, "device-token"))
	_, err = env.chat.SendMessage(ctx, a.ID, SendMessageRequest{ReceiverID: b.ID, Content: "offline"})
	require.NoError(t, err)

	select {
	case token := <-env.push.tokens:
		assert.Equal(t, "device-token", token)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a push notification")
	}
}

func TestPreviewTruncatesLongContent(t *testing.T) {
	long := make([]rune, pushPreviewLength+10)
	for i := range long {
		long[i] = 'a'
	}
	got := []rune(preview(string(long)))
	assert.Len(t, got, pushPreviewLength+1)
	assert.Equal(t, "short", preview("short"))
}
