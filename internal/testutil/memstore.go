// Package testutil provides in-memory stand-ins for the postgres repositories.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"connectiu-backend/internal/models"
)

type edge struct{ a, b int64 }

// Memory is a shared in-memory database. The typed views returned by its
// accessors implement the service store interfaces.
type Memory struct {
	mu sync.Mutex

	seq           int64
	clock         time.Time
	users         map[int64]*models.User
	posts         map[int64]*models.Post
	likes         map[edge]bool
	comments      map[int64]*models.Comment
	follows       map[edge]bool
	events        map[int64]*models.Event
	attendance    map[edge]bool
	conversations map[int64]*models.Conversation
	messages      []*models.Message
}

// NewMemory creates an empty in-memory database
func NewMemory() *Memory {
	return &Memory{
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:         make(map[int64]*models.User),
		posts:         make(map[int64]*models.Post),
		likes:         make(map[edge]bool),
		comments:      make(map[int64]*models.Comment),
		follows:       make(map[edge]bool),
		events:        make(map[int64]*models.Event),
		attendance:    make(map[edge]bool),
		conversations: make(map[int64]*models.Conversation),
	}
}

// next returns a fresh id and a strictly increasing timestamp
func (m *Memory) next() (int64, time.Time) {
	m.seq++
	m.clock = m.clock.Add(time.Second)
	return m.seq, m.clock
}

func (m *Memory) Users() *UserStore       { return &UserStore{m} }
func (m *Memory) Posts() *PostStore       { return &PostStore{m} }
func (m *Memory) Comments() *CommentStore { return &CommentStore{m} }
func (m *Memory) Follows() *FollowStore   { return &FollowStore{m} }
func (m *Memory) Events() *EventStore     { return &EventStore{m} }
func (m *Memory) Chat() *ChatStore        { return &ChatStore{m} }

// ConversationCount returns the number of stored conversations
func (m *Memory) ConversationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

// CommentCount returns the number of stored comments
func (m *Memory) CommentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.comments)
}

func publicUser(u *models.User) *models.PublicUser {
	return &models.PublicUser{ID: u.ID, Name: u.Name, Username: u.Username, AvatarURL: u.AvatarURL, Bio: u.Bio}
}

// UserStore is the in-memory user repository
type UserStore struct{ m *Memory }

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return models.ErrDuplicate
		}
	}
	user.ID, user.CreatedAt = s.m.next()
	cp := *user
	s.m.users[user.ID] = &cp
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *UserStore) Exists(_ context.Context, id int64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	_, ok := s.m.users[id]
	return ok, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, id int64, upd models.ProfileUpdate) (*models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Bio != nil {
		u.Bio = upd.Bio
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = upd.AvatarURL
	}
	if upd.CoverURL != nil {
		u.CoverURL = upd.CoverURL
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) UpdatePushToken(_ context.Context, userID int64, pushToken *string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.PushToken = pushToken
	return nil
}

func (s *UserStore) sorted(filter func(*models.User) bool) []*models.PublicUser {
	out := []*models.PublicUser{}
	for _, u := range s.m.users {
		if filter(u) {
			out = append(out, publicUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *UserStore) List(_ context.Context, limit, offset int) ([]*models.PublicUser, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return page(s.sorted(func(*models.User) bool { return true }), limit, offset), nil
}

func (s *UserStore) Search(_ context.Context, q string, limit int) ([]*models.PublicUser, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	q = strings.ToLower(q)
	out := s.sorted(func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Username), q)
	})
	return page(out, limit, 0), nil
}

func (s *UserStore) Suggestions(_ context.Context, viewerID int64, limit int) ([]*models.PublicUser, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := s.sorted(func(u *models.User) bool {
		return u.ID != viewerID && !s.m.follows[edge{viewerID, u.ID}]
	})
	return page(out, limit, 0), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// PostStore is the in-memory post repository
type PostStore struct{ m *Memory }

func (s *PostStore) Create(_ context.Context, post *models.Post) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[post.UserID]; !ok {
		return models.ErrNotFound
	}
	post.ID, post.CreatedAt = s.m.next()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	s.m.posts[post.ID] = &cp
	return nil
}

func (s *PostStore) GetByID(_ context.Context, id int64) (*models.Post, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *PostStore) Exists(_ context.Context, id int64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	_, ok := s.m.posts[id]
	return ok, nil
}

func (s *PostStore) Update(_ context.Context, post *models.Post) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.posts[post.ID]
	if !ok {
		return models.ErrNotFound
	}
	_, post.UpdatedAt = s.m.next()
	p.Content = post.Content
	p.ImageURL = post.ImageURL
	p.UpdatedAt = post.UpdatedAt
	return nil
}

func (s *PostStore) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.posts[id]; !ok {
		return models.ErrNotFound
	}
	for cid, c := range s.m.comments {
		if c.PostID == id {
			delete(s.m.comments, cid)
		}
	}
	for e := range s.m.likes {
		if e.a == id {
			delete(s.m.likes, e)
		}
	}
	delete(s.m.posts, id)
	return nil
}

func (s *PostStore) feedPost(p *models.Post, viewerID int64) *models.FeedPost {
	fp := &models.FeedPost{Post: *p}
	if u, ok := s.m.users[p.UserID]; ok {
		fp.UserName = u.Name
		fp.Username = u.Username
		fp.AvatarURL = u.AvatarURL
	}
	for e := range s.m.likes {
		if e.a == p.ID {
			fp.Likes++
			if e.b == viewerID {
				fp.Liked = true
			}
		}
	}
	for _, c := range s.m.comments {
		if c.PostID == p.ID {
			fp.Comments++
		}
	}
	return fp
}

func (s *PostStore) collect(viewerID int64, filter func(*models.Post) bool) []*models.FeedPost {
	out := []*models.FeedPost{}
	for _, p := range s.m.posts {
		if filter(p) {
			out = append(out, s.feedPost(p, viewerID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *PostStore) Feed(_ context.Context, viewerID int64, limit, offset int) ([]*models.FeedPost, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return page(s.collect(viewerID, func(*models.Post) bool { return true }), limit, offset), nil
}

func (s *PostStore) ByUser(_ context.Context, userID, viewerID int64) ([]*models.FeedPost, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.collect(viewerID, func(p *models.Post) bool { return p.UserID == userID }), nil
}

func (s *PostStore) Trending(_ context.Context, viewerID int64, limit int) ([]*models.FeedPost, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	all := s.collect(viewerID, func(*models.Post) bool { return true })
	out := []*models.FeedPost{}
	for _, p := range all {
		if p.Likes > 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Likes > out[j].Likes })
	return page(out, limit, 0), nil
}

func (s *PostStore) ToggleLike(_ context.Context, postID, userID int64) (bool, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.posts[postID]; !ok {
		return false, 0, models.ErrNotFound
	}
	key := edge{postID, userID}
	liked := !s.m.likes[key]
	if liked {
		s.m.likes[key] = true
	} else {
		delete(s.m.likes, key)
	}
	var count int64
	for e := range s.m.likes {
		if e.a == postID {
			count++
		}
	}
	return liked, count, nil
}

// CommentStore is the in-memory comment repository
type CommentStore struct{ m *Memory }

func (s *CommentStore) Create(_ context.Context, comment *models.Comment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.posts[comment.PostID]; !ok {
		return models.ErrNotFound
	}
	u, ok := s.m.users[comment.UserID]
	if !ok {
		return models.ErrNotFound
	}
	comment.ID, comment.CreatedAt = s.m.next()
	comment.UserName = u.Name
	comment.AvatarURL = u.AvatarURL
	cp := *comment
	s.m.comments[comment.ID] = &cp
	return nil
}

func (s *CommentStore) ListByPost(_ context.Context, postID int64) ([]*models.Comment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []*models.Comment{}
	for _, c := range s.m.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FollowStore is the in-memory follow repository
type FollowStore struct{ m *Memory }

func (s *FollowStore) Toggle(_ context.Context, followerID, followingID int64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	key := edge{followerID, followingID}
	if s.m.follows[key] {
		delete(s.m.follows, key)
		return false, nil
	}
	s.m.follows[key] = true
	return true, nil
}

func (s *FollowStore) Delete(_ context.Context, followerID, followingID int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.follows, edge{followerID, followingID})
	return nil
}

func (s *FollowStore) IsFollowing(_ context.Context, followerID, followingID int64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.follows[edge{followerID, followingID}], nil
}

func (s *FollowStore) CountFollowers(_ context.Context, userID int64) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for e := range s.m.follows {
		if e.b == userID {
			n++
		}
	}
	return n, nil
}

func (s *FollowStore) CountFollowing(_ context.Context, userID int64) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for e := range s.m.follows {
		if e.a == userID {
			n++
		}
	}
	return n, nil
}

func (s *FollowStore) list(match func(e edge) (int64, bool)) []*models.PublicUser {
	out := []*models.PublicUser{}
	for e := range s.m.follows {
		if id, ok := match(e); ok {
			if u, exists := s.m.users[id]; exists {
				out = append(out, publicUser(u))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *FollowStore) Followers(_ context.Context, userID int64) ([]*models.PublicUser, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.list(func(e edge) (int64, bool) { return e.a, e.b == userID }), nil
}

func (s *FollowStore) Following(_ context.Context, userID int64) ([]*models.PublicUser, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.list(func(e edge) (int64, bool) { return e.b, e.a == userID }), nil
}

func (s *FollowStore) Friends(_ context.Context, userID int64) ([]*models.PublicUser, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.list(func(e edge) (int64, bool) {
		return e.b, e.a == userID && s.m.follows[edge{e.b, userID}]
	}), nil
}

// EventStore is the in-memory event repository
type EventStore struct{ m *Memory }

func (s *EventStore) Create(_ context.Context, event *models.Event) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[event.UserID]; !ok {
		return models.ErrNotFound
	}
	event.ID, event.CreatedAt = s.m.next()
	cp := *event
	s.m.events[event.ID] = &cp
	return nil
}

func (s *EventStore) Exists(_ context.Context, id int64) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	_, ok := s.m.events[id]
	return ok, nil
}

func (s *EventStore) List(_ context.Context, viewerID int64) ([]*models.Event, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []*models.Event{}
	for _, e := range s.m.events {
		cp := *e
		if u, ok := s.m.users[e.UserID]; ok {
			cp.CreadorNombre = u.Name
			cp.AvatarURL = u.AvatarURL
		}
		cp.AsistentesCount = s.attendees(e.ID)
		cp.Asistiendo = s.m.attendance[edge{e.ID, viewerID}]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fecha.Before(out[j].Fecha) })
	return out, nil
}

func (s *EventStore) attendees(eventID int64) int64 {
	var n int64
	for e := range s.m.attendance {
		if e.a == eventID {
			n++
		}
	}
	return n
}

func (s *EventStore) ToggleAttendance(_ context.Context, eventID, userID int64) (bool, int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.events[eventID]; !ok {
		return false, 0, models.ErrNotFound
	}
	key := edge{eventID, userID}
	attending := !s.m.attendance[key]
	if attending {
		s.m.attendance[key] = true
	} else {
		delete(s.m.attendance, key)
	}
	return attending, s.attendees(eventID), nil
}

// ChatStore is the in-memory chat repository
type ChatStore struct{ m *Memory }

func (s *ChatStore) SendMessage(_ context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[senderID]; !ok {
		return nil, models.ErrNotFound
	}
	if _, ok := s.m.users[receiverID]; !ok {
		return nil, models.ErrNotFound
	}

	conv := s.find(senderID, receiverID)
	if conv == nil {
		user1, user2 := models.OrderedPair(senderID, receiverID)
		conv = &models.Conversation{User1ID: user1, User2ID: user2}
		conv.ID, conv.CreatedAt = s.m.next()
		s.m.conversations[conv.ID] = conv
	}

	msg := &models.Message{ConversationID: conv.ID, SenderID: senderID, Content: content}
	msg.ID, msg.CreatedAt = s.m.next()
	s.m.messages = append(s.m.messages, msg)
	cp := *msg
	return &cp, nil
}

func (s *ChatStore) find(userA, userB int64) *models.Conversation {
	user1, user2 := models.OrderedPair(userA, userB)
	for _, c := range s.m.conversations {
		if c.User1ID == user1 && c.User2ID == user2 {
			return c
		}
	}
	return nil
}

func (s *ChatStore) GetConversation(_ context.Context, id int64) (*models.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.conversations[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *ChatStore) FindConversation(_ context.Context, userA, userB int64) (*models.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c := s.find(userA, userB)
	if c == nil {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *ChatStore) ListMessages(_ context.Context, conversationID int64, limit int) ([]*models.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []*models.Message{}
	for _, msg := range s.m.messages {
		if msg.ConversationID == conversationID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *ChatStore) ListConversations(_ context.Context, userID int64) ([]*models.ConversationSummary, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []*models.ConversationSummary{}
	for _, c := range s.m.conversations {
		if c.User1ID != userID && c.User2ID != userID {
			continue
		}
		otherID := c.User1ID
		if otherID == userID {
			otherID = c.User2ID
		}
		summary := &models.ConversationSummary{ID: c.ID}
		if u, ok := s.m.users[otherID]; ok {
			summary.OtherUser = *publicUser(u)
			summary.OtherUser.Bio = nil
		}
		for _, msg := range s.m.messages {
			if msg.ConversationID == c.ID {
				cp := *msg
				summary.LastMessage = &cp
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		return lastActivity(out[i]) > lastActivity(out[j])
	})
	return out, nil
}

func lastActivity(s *models.ConversationSummary) int64 {
	if s.LastMessage != nil {
		return s.LastMessage.ID
	}
	return s.ID
}
