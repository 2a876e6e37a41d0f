package models

import "time"

// Account represents a member of the site
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Gender       string    `json:"gender"`
	DateOfBirth  time.Time `json:"dateOfBirth"`
	KnownAs      string    `json:"knownAs"`
	Created      time.Time `json:"created"`
	LastActive   time.Time `json:"lastActive"`
	Introduction string    `json:"introduction"`
	LookingFor   string    `json:"lookingFor"`
	Interests    string    `json:"interests"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	PushToken    *string   `json:"-"`
	Photos       []*Photo  `json:"photos,omitempty"`
}

// MainPhotoURL returns the URL of the main photo among the loaded photos.
// Callers load only the photos the viewer is allowed to see.
func (a *Account) MainPhotoURL() string {
	for _, p := range a.Photos {
		if p.IsMain {
			return p.URL
		}
	}
	return ""
}

// Photo belongs to exactly one account
type Photo struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	DateAdded   time.Time `json:"dateAdded"`
	IsMain      bool      `json:"isMain"`
	IsApproved  bool      `json:"isApproved"`
	PublicID    string    `json:"-"`
}

// Like is a directed edge from liker to likee
type Like struct {
	LikerID   string    `json:"likerId"`
	LikeeID   string    `json:"likeeId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a private message between two accounts
type Message struct {
	ID               string     `json:"id"`
	SenderID         string     `json:"senderId"`
	RecipientID      string     `json:"recipientId"`
	Content          string     `json:"content"`
	IsRead           bool       `json:"isRead"`
	DateRead         *time.Time `json:"dateRead"`
	MessageSent      time.Time  `json:"messageSent"`
	SenderDeleted    bool       `json:"-"`
	RecipientDeleted bool       `json:"-"`
}

// HiddenFor reports whether the account has tombstoned its side of the message
func (m *Message) HiddenFor(accountID string) bool {
	switch accountID {
	case m.SenderID:
		return m.SenderDeleted
	case m.RecipientID:
		return m.RecipientDeleted
	}
	return true
}

// MessageView is a message joined with both participants
type MessageView struct {
	ID                string     `json:"id"`
	SenderID          string     `json:"senderId"`
	SenderKnownAs     string     `json:"senderKnownAs"`
	SenderPhotoURL    string     `json:"senderPhotoUrl"`
	RecipientID       string     `json:"recipientId"`
	RecipientKnownAs  string     `json:"recipientKnownAs"`
	RecipientPhotoURL string     `json:"recipientPhotoUrl"`
	Content           string     `json:"content"`
	IsRead            bool       `json:"isRead"`
	DateRead          *time.Time `json:"dateRead"`
	MessageSent       time.Time  `json:"messageSent"`
}

// AccountSummary is the list projection used by the discovery feed
type AccountSummary struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Gender     string    `json:"gender"`
	Age        int       `json:"age"`
	KnownAs    string    `json:"knownAs"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"lastActive"`
	City       string    `json:"city"`
	Country    string    `json:"country"`
	PhotoURL   string    `json:"photoUrl"`
}

// AccountDetail is the profile projection
type AccountDetail struct {
	AccountSummary
	Introduction string   `json:"introduction"`
	LookingFor   string   `json:"lookingFor"`
	Interests    string   `json:"interests"`
	Photos       []*Photo `json:"photos"`
}

// AccountRoles pairs an account with its role names
type AccountRoles struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// PhotoForModeration is an unapproved photo with its owner's username
type PhotoForModeration struct {
	ID         string `json:"id"`
	Username   string `json:"userName"`
	URL        string `json:"url"`
	IsApproved bool   `json:"isApproved"`
}

// Age returns the age in whole years on the given day
func Age(dateOfBirth, today time.Time) int {
	age := today.Year() - dateOfBirth.Year()
	if dateOfBirth.AddDate(age, 0, 0).After(today) {
		age--
	}
	return age
}

// Summary projects an account for list views
func (a *Account) Summary(today time.Time) AccountSummary {
	return AccountSummary{
		ID:         a.ID,
		Username:   a.Username,
		Gender:     a.Gender,
		Age:        Age(a.DateOfBirth, today),
		KnownAs:    a.KnownAs,
		Created:    a.Created,
		LastActive: a.LastActive,
		City:       a.City,
		Country:    a.Country,
		PhotoURL:   a.MainPhotoURL(),
	}
}

// MessageContainer names a mailbox view
type MessageContainer string

const (
	ContainerInbox  MessageContainer = "Inbox"
	ContainerOutbox MessageContainer = "Outbox"
	ContainerUnread MessageContainer = "Unread"
)

// ParseMessageContainer maps a query value to a container, defaulting to Unread
func ParseMessageContainer(s string) MessageContainer {
	switch MessageContainer(s) {
	case ContainerInbox:
		return ContainerInbox
	case ContainerOutbox:
		return ContainerOutbox
	default:
		return ContainerUnread
	}
}
