package models

import "time"

// Identity is the authenticated user on whose behalf polling occurs.
// Resolved once at initialization and kept for the process lifetime.
type Identity struct {
	ID            string `json:"id"`
	PrincipalName string `json:"principal_name"`
	DisplayName   string `json:"display_name"`
}

// TokenSet holds the credentials returned by a refresh-token exchange.
// It is owned exclusively by the auth manager and replaced wholesale on
// every exchange.
type TokenSet struct {
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ClientInfo   string `json:"client_info"`
}

// ChatType is a closed classification decided once when a chat is fetched.
type ChatType int

const (
	ChatOther ChatType = iota
	ChatOneOnOne
)

func (t ChatType) String() string {
	if t == ChatOneOnOne {
		return "oneOnOne"
	}
	return "other"
}

type ChatMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type Chat struct {
	ID      string       `json:"id"`
	Topic   string       `json:"topic"`
	Type    ChatType     `json:"type"`
	Members []ChatMember `json:"members"`
}

// Mention references a user called out in a message body.
type Mention struct {
	UserID string `json:"user_id"`
}

type Message struct {
	CreatedAt time.Time `json:"created_at"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Mentions  []Mention `json:"mentions"`
}

// MentionsUser reports whether the message mentions the given user id.
func (m Message) MentionsUser(userID string) bool {
	for _, mention := range m.Mentions {
		if mention.UserID == userID {
			return true
		}
	}
	return false
}

// ResponseStatus is an attendee's reply to a calendar invitation.
type ResponseStatus string

const (
	ResponseNone      ResponseStatus = "none"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseTentative ResponseStatus = "tentative"
	ResponseOrganizer ResponseStatus = "organizer"
)

type Attendee struct {
	Email    string         `json:"email"`
	Response ResponseStatus `json:"response"`
}

type CalendarEvent struct {
	CreatedAt      time.Time  `json:"created_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	StartTime      time.Time  `json:"start_time"`
	Subject        string     `json:"subject"`
	Organizer      string     `json:"organizer"`
	Attendees      []Attendee `json:"attendees"`
}
