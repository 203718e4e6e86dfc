package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xaenox/teams-notify/internal/models"
	"github.com/xaenox/teams-notify/pkg/config"
	"go.uber.org/zap"
)

// UpstreamError reports a failed collaboration API call. StatusCode is
// zero for transport-level failures.
type UpstreamError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// AuthFailure reports whether the call was rejected for a stale or
// invalid credential.
func (e *UpstreamError) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// TokenSource supplies the bearer credential attached to every request.
type TokenSource interface {
	EnsureToken(ctx context.Context) (*models.TokenSet, error)
}

// Client talks to a Microsoft-Graph-shaped collaboration API.
type Client struct {
	baseURL       string
	http          *http.Client
	tokens        TokenSource
	logger        *zap.Logger
	retryAttempts int
}

func NewClient(cfg config.GraphConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		tokens:        tokens,
		logger:        logger,
		retryAttempts: cfg.RetryAttempts,
	}
}

// GetMe resolves the authenticated identity.
func (c *Client) GetMe(ctx context.Context) (*models.Identity, error) {
	var out struct {
		ID                string `json:"id"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}
	if err := c.getJSON(ctx, "get current user", "/me", &out); err != nil {
		return nil, err
	}
	return &models.Identity{
		ID:            out.ID,
		PrincipalName: out.UserPrincipalName,
		DisplayName:   out.DisplayName,
	}, nil
}

type wireChat struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	ChatType string `json:"chatType"`
	Members  []struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"members"`
}

// ListChats lists the chats the identity belongs to, with membership
// expanded. The chat type classification is decided here, once.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var out struct {
		Value []wireChat `json:"value"`
	}
	if err := c.getJSON(ctx, "list chats", "/me/chats?$expand=members", &out); err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(out.Value))
	for _, wc := range out.Value {
		chat := models.Chat{
			ID:    wc.ID,
			Topic: wc.Topic,
			Type:  models.ChatOther,
		}
		if wc.ChatType == "oneOnOne" {
			chat.Type = models.ChatOneOnOne
		}
		for _, m := range wc.Members {
			chat.Members = append(chat.Members, models.ChatMember{
				UserID:      m.UserID,
				DisplayName: m.DisplayName,
				Email:       m.Email,
			})
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

type wireMessage struct {
	CreatedDateTime time.Time `json:"createdDateTime"`
	From            *struct {
		User *struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"user"`
	} `json:"from"`
	Body *struct {
		Content string `json:"content"`
	} `json:"body"`
	Mentions []struct {
		Mentioned *struct {
			User *struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"mentioned"`
	} `json:"mentions"`
}

// ListChatMessages fetches the most recent page of messages in a chat.
// The page arrives most-recent-first; callers re-sort as needed.
func (c *Client) ListChatMessages(ctx context.Context, chatID string, top int) ([]models.Message, error) {
	path := fmt.Sprintf("/me/chats/%s/messages?$top=%d", url.PathEscape(chatID), top)
	var out struct {
		Value []wireMessage `json:"value"`
	}
	if err := c.getJSON(ctx, "list chat messages", path, &out); err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(out.Value))
	for _, wm := range out.Value {
		msg := models.Message{CreatedAt: wm.CreatedDateTime}
		if wm.From != nil && wm.From.User != nil {
			msg.From = wm.From.User.DisplayName
		}
		if wm.Body != nil {
			msg.Body = wm.Body.Content
		}
		for _, mention := range wm.Mentions {
			if mention.Mentioned != nil && mention.Mentioned.User != nil {
				msg.Mentions = append(msg.Mentions, models.Mention{UserID: mention.Mentioned.User.ID})
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

type wireEvent struct {
	CreatedDateTime      time.Time `json:"createdDateTime"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
	Subject              string    `json:"subject"`
	Organizer            *struct {
		EmailAddress *struct {
			Name string `json:"name"`
		} `json:"emailAddress"`
	} `json:"organizer"`
	Start *struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	} `json:"start"`
	Attendees []struct {
		EmailAddress *struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
		Status *struct {
			Response string `json:"response"`
		} `json:"status"`
	} `json:"attendees"`
}

// ListCalendarView lists the identity's calendar events overlapping the
// given window, newest-created first.
func (c *Client) ListCalendarView(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	query := url.Values{}
	query.Set("startDateTime", from.UTC().Format(time.RFC3339))
	query.Set("endDateTime", to.UTC().Format(time.RFC3339))
	query.Set("$orderby", "createdDateTime desc")
	path := "/me/calendarView?" + query.Encode()
	var out struct {
		Value []wireEvent `json:"value"`
	}
	if err := c.getJSON(ctx, "list calendar view", path, &out); err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(out.Value))
	for _, we := range out.Value {
		event := models.CalendarEvent{
			CreatedAt:      we.CreatedDateTime,
			LastModifiedAt: we.LastModifiedDateTime,
			Subject:        we.Subject,
		}
		if we.Organizer != nil && we.Organizer.EmailAddress != nil {
			event.Organizer = we.Organizer.EmailAddress.Name
		}
		if we.Start != nil {
			event.StartTime = parseGraphTime(we.Start.DateTime)
		}
		for _, a := range we.Attendees {
			attendee := models.Attendee{}
			if a.EmailAddress != nil {
				attendee.Email = a.EmailAddress.Address
			}
			if a.Status != nil {
				attendee.Response = models.ResponseStatus(strings.ToLower(a.Status.Response))
			}
			event.Attendees = append(event.Attendees, attendee)
		}
		events = append(events, event)
	}
	return events, nil
}

// Graph event start/end times arrive without a zone offset.
func parseGraphTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.9999999", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	token, err := c.tokens.EnsureToken(ctx)
	if err != nil {
		return &UpstreamError{Op: op, Message: fmt.Sprintf("no credential: %v", err)}
	}

	var lastErr *UpstreamError
	attempts := c.retryAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return &UpstreamError{Op: op, Message: err.Error()}
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = &UpstreamError{Op: op, Message: err.Error()}
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = &UpstreamError{Op: op, StatusCode: resp.StatusCode, Message: readErr.Error()}
			} else if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
				if err := json.Unmarshal(body, out); err != nil {
					return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("unparseable response: %v", err)}
				}
				return nil
			} else {
				lastErr = &UpstreamError{Op: op, StatusCode: resp.StatusCode, Message: string(body)}
			}
		}

		// Only transport errors and server errors are worth retrying.
		// Auth failures are resolved by the caller via a token refresh.
		if lastErr.StatusCode != 0 && lastErr.StatusCode < 500 {
			return lastErr
		}
		if attempt < attempts {
			c.logger.Warn("Retrying transient upstream failure",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("status", lastErr.StatusCode))
			select {
			case <-ctx.Done():
				return &UpstreamError{Op: op, Message: ctx.Err().Error()}
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return lastErr
}
