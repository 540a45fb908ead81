package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match status values. ACCEPTED and REJECTED are terminal.
const (
	MatchStatusPending  = "PENDING"
	MatchStatusAccepted = "ACCEPTED"
	MatchStatusRejected = "REJECTED"
)

// Message status values.
const (
	MessageStatusSent = "SENT"
	MessageStatusRead = "READ"
)

// Notification types.
const (
	NotificationTypeLike    = "LIKE"
	NotificationTypeMatch   = "MATCH"
	NotificationTypeMessage = "MESSAGE"
)

// User table
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`
	LastActiveAt time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Profile    *Profile    `gorm:"foreignKey:UserID"`
	Preference *Preference `gorm:"foreignKey:UserID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile holds everything the scorer reads about a user. Optional
// attributes are pointers or empty strings/slices; "unknown" is a valid
// value everywhere.
type Profile struct {
	UserID            string `gorm:"primaryKey;size:36"`
	DisplayName       string `gorm:"size:64"`
	ProfilePictureURL string `gorm:"size:512"`

	// Demographics
	Gender        string `gorm:"size:16;index"`
	BirthDate     *time.Time
	HeightCM      *int
	MaritalStatus string `gorm:"size:32"`

	// Community
	Religion     string `gorm:"size:64"`
	Caste        string `gorm:"size:64"`
	SubCaste     string `gorm:"size:64"`
	MotherTongue string `gorm:"size:64"`
	Community    string `gorm:"size:64"`

	// Education & work
	Education     string `gorm:"size:64"`
	HighestDegree string `gorm:"size:64"`
	Occupation    string `gorm:"size:64"`
	EmployedIn    string `gorm:"size:64"`
	AnnualIncome  string `gorm:"size:32"`

	// Lifestyle
	Diet              string `gorm:"size:32"`
	Smoking           string `gorm:"size:32"`
	Drinking          string `gorm:"size:32"`
	LivingArrangement string `gorm:"size:64"`

	// Personality & interests
	Hobbies           []string `gorm:"serializer:json"`
	Interests         []string `gorm:"serializer:json"`
	PersonalityTraits []string `gorm:"serializer:json"`
	MusicTaste        []string `gorm:"serializer:json"`
	MovieTaste        []string `gorm:"serializer:json"`
	SportsInterest    []string `gorm:"serializer:json"`
	TravelStyle       string   `gorm:"size:32"`

	// Values & plans
	FamilyValues     string   `gorm:"size:32"`
	ReligiousBeliefs string   `gorm:"size:32"`
	PoliticalViews   string   `gorm:"size:32"`
	WantsChildren    string   `gorm:"size:32"`
	MarriagePlans    string   `gorm:"size:64"`
	FutureGoals      []string `gorm:"serializer:json"`

	// Location
	Latitude  *float64
	Longitude *float64
	City      string `gorm:"size:64"`
	State     string `gorm:"size:64"`
	Country   string `gorm:"size:64"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Preference is a user's stated partner preferences.
type Preference struct {
	UserID string `gorm:"primaryKey;size:36"`

	AcceptedGenders []string `gorm:"serializer:json"`
	AgeMin          *int
	AgeMax          *int
	HeightMinCM     *int
	HeightMaxCM     *int
	MaxDistanceKM   *int

	PreferredReligion    []string `gorm:"serializer:json"`
	PreferredCaste       []string `gorm:"serializer:json"`
	EducationPreference  []string `gorm:"serializer:json"`
	OccupationPreference []string `gorm:"serializer:json"`
	IncomePreference     string   `gorm:"size:32"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match is the interest record between two users. One row exists per
// unordered pair; sender is whichever user acted first.
//
// Indexes:
//   - idx_match_pair(sender_id, receiver_id) unique — one row per ordered pair,
//     pair lookups always query both directions.
//   - receiver_id/status and sender_id/status support inbox/outbox listings.
//
// ChatRoomID is set iff Status = ACCEPTED. The PENDING→ACCEPTED flip is a
// conditional update guarded by the current status (see MatchRepository).
type Match struct {
	ID         string  `gorm:"primaryKey;size:36"`
	SenderID   string  `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:1;index:idx_match_sender_status,priority:1"`
	ReceiverID string  `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2;index:idx_match_receiver_status,priority:1"`
	Status     string  `gorm:"size:16;not null;index:idx_match_sender_status,priority:2;index:idx_match_receiver_status,priority:2"`
	ChatRoomID *string `gorm:"size:36"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Like is the append-only directed interest record.
// Composite PK keeps a single row per direction.
type Like struct {
	FromUserID string    `gorm:"primaryKey;size:36"`
	ToUserID   string    `gorm:"primaryKey;size:36"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Block is a directed block. A block in either direction removes both
// users from each other's candidate pool and prevents new messages.
type Block struct {
	BlockerID string    `gorm:"primaryKey;size:36"`
	BlockedID string    `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ChatRoom is created exactly once when a Match becomes ACCEPTED.
type ChatRoom struct {
	ID             string    `gorm:"primaryKey;size:36"`
	IsActive       bool      `gorm:"default:true"`
	LastActivityAt time.Time `gorm:"index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`

	Participants []ChatParticipant `gorm:"foreignKey:ChatRoomID"`
}

func (c *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.LastActivityAt.IsZero() {
		c.LastActivityAt = time.Now().UTC()
	}
	return nil
}

// ChatParticipant is a user's membership in a room. LastReadAt is mutated
// only by that user's own read actions.
type ChatParticipant struct {
	ChatRoomID string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"primaryKey;size:36;index"`
	LastReadAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Message is immutable once created except for the SENT→READ status flip.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36"`
	ChatRoomID  string    `gorm:"size:36;not null;index:idx_message_room_sent,priority:1"`
	SenderID    string    `gorm:"size:36;not null"`
	Content     string    `gorm:"type:text;not null"`
	MessageType string    `gorm:"size:16;default:TEXT"`
	Status      string    `gorm:"size:16;default:SENT"`
	SentAt      time.Time `gorm:"autoCreateTime;index:idx_message_room_sent,priority:2,sort:desc"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MessageReadReceipt: at most one per (message, user); creation is
// idempotent via OnConflict DoNothing.
type MessageReadReceipt struct {
	MessageID string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36"`
	ReadAt    time.Time `gorm:"autoCreateTime"`
}

// Notification is the durable copy of every fanout event; live delivery is
// best-effort on top of it.
type Notification struct {
	ID        string         `gorm:"primaryKey;size:36"`
	UserID    string         `gorm:"size:36;not null;index:idx_notification_user_read,priority:1"`
	Type      string         `gorm:"size:16;not null"`
	Title     string         `gorm:"size:128"`
	Message   string         `gorm:"size:512"`
	Data      map[string]any `gorm:"serializer:json"`
	IsRead    bool           `gorm:"default:false;index:idx_notification_user_read,priority:2"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
