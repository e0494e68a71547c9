package models

import "time"

// User represents a registered account
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	AvatarURL *string   `json:"avatar_url"`
	CoverURL  *string   `json:"cover_url"`
	Bio       *string   `json:"bio"`
	PushToken *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the subset of user fields exposed in lists
type PublicUser struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio,omitempty"`
}

// ProfileUpdate carries the editable profile fields; nil means unchanged
type ProfileUpdate struct {
	Name      *string `json:"name"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
	CoverURL  *string `json:"cover_url"`
}

// Post represents a post row
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedPost is a post joined with its author and engagement counts
type FeedPost struct {
	Post
	UserName  string  `json:"user_name"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Likes     int64   `json:"likes"`
	Comments  int64   `json:"comments"`
	Liked     bool    `json:"liked"`
}

// Comment represents a comment on a post
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// ProfileUser is the user shown on a profile page. Email is only set when
// the viewer is the profile owner.
type ProfileUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	AvatarURL *string   `json:"avatar_url"`
	CoverURL  *string   `json:"cover_url"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileView returns the profile fields of u visible to viewerID
func (u *User) ProfileView(viewerID int64) *ProfileUser {
	view := &ProfileUser{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
	if viewerID == u.ID {
		view.Email = u.Email
	}
	return view
}

// Profile is a user with follow counts and posts
type Profile struct {
	User      *ProfileUser `json:"user"`
	Followers int64        `json:"followers"`
	Following int64        `json:"following"`
	Posts     []*FeedPost  `json:"posts"`
}

// Event represents an event ("evento") users can attend
type Event struct {
	ID              int64     `json:"id"`
	Titulo          string    `json:"titulo"`
	Lugar           string    `json:"lugar"`
	Fecha           time.Time `json:"fecha"`
	UserID          int64     `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	CreadorNombre   string    `json:"creador_nombre,omitempty"`
	AvatarURL       *string   `json:"avatar_url,omitempty"`
	AsistentesCount int64     `json:"asistentes_count"`
	Asistiendo      bool      `json:"asistiendo"`
}

// Conversation pairs two users; User1ID is always the smaller id
type Conversation struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary is a conversation as seen by one participant
type ConversationSummary struct {
	ID          int64      `json:"id"`
	OtherUser   PublicUser `json:"other_user"`
	LastMessage *Message   `json:"last_message"`
}

// Message represents a chat message
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrderedPair returns the two ids smallest first
func OrderedPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
