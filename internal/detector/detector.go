package detector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xaenox/teams-notify/internal/graph"
	"github.com/xaenox/teams-notify/internal/models"
	"github.com/xaenox/teams-notify/pkg/config"
	"go.uber.org/zap"
)

// ChatClient is the slice of the collaboration API the detector needs.
type ChatClient interface {
	GetMe(ctx context.Context) (*models.Identity, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	ListChatMessages(ctx context.Context, chatID string, top int) ([]models.Message, error)
	ListCalendarView(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
}

// TokenRefresher resolves authorization failures by forcing a new token
// exchange.
type TokenRefresher interface {
	ForceRefresh(ctx context.Context) (*models.TokenSet, error)
}

type Notifier interface {
	Play(path string)
}

// Session carries all state that survives across poll cycles: the
// resolved identity and the per-resource watermarks. The caller owns it
// and passes it into every call; cycles are serialized by the caller, so
// no locking is needed here.
type Session struct {
	Identity         *models.Identity
	LastMessageCheck time.Time
	LastEventCheck   time.Time
}

// Detector finds new direct messages, mentions, and unanswered calendar
// invitations since the session's watermarks and plays a notification
// cue for each one.
type Detector struct {
	client    ChatClient
	tokens    TokenRefresher
	notifier  Notifier
	logger    *zap.Logger
	soundPath string
	lookback  time.Duration
	pageSize  int
	now       func() time.Time
}

func New(client ChatClient, tokens TokenRefresher, notifier Notifier, cfg config.PollConfig, soundPath string, logger *zap.Logger) *Detector {
	return &Detector{
		client:    client,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger,
		soundPath: soundPath,
		lookback:  cfg.Lookback(),
		pageSize:  cfg.MessagePageSize,
		now:       time.Now,
	}
}

// Initialize refreshes the credential, resolves the identity, and seeds
// both watermarks to now minus the lookback buffer. On any failure the
// session's identity stays nil and the next cycle re-attempts.
func (d *Detector) Initialize(ctx context.Context, sess *Session) error {
	if _, err := d.tokens.ForceRefresh(ctx); err != nil {
		return fmt.Errorf("initial token refresh: %w", err)
	}

	identity, err := d.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}

	start := d.now().Add(-d.lookback)
	sess.Identity = identity
	sess.LastMessageCheck = start
	sess.LastEventCheck = start

	d.logger.Info("Detector initialized",
		zap.String("user_id", identity.ID),
		zap.String("principal", identity.PrincipalName),
		zap.Time("watermark", start))

	return nil
}

// CheckForUpdates runs one poll cycle. It never returns an error: every
// failure is logged and confined to this cycle.
func (d *Detector) CheckForUpdates(ctx context.Context, sess *Session) {
	if sess.Identity == nil {
		if err := d.Initialize(ctx, sess); err != nil {
			d.logger.Error("Initialization failed, skipping cycle", zap.Error(err))
			return
		}
	}

	if err := d.checkMessages(ctx, sess); err != nil {
		d.logUpstream("Message check failed", err)
	}

	if err := d.checkEvents(ctx, sess); err != nil {
		d.logUpstream("Event check failed", err)
	}
}

func (d *Detector) logUpstream(msg string, err error) {
	var upstream *graph.UpstreamError
	if errors.As(err, &upstream) {
		d.logger.Error(msg, zap.Error(err), zap.Int("status", upstream.StatusCode))
		return
	}
	d.logger.Error(msg, zap.Error(err))
}

// checkMessages scans chats for qualifying messages. An authorization
// failure triggers one token refresh followed by one full restart of the
// scan; any other failure, or a failed retry, aborts without touching
// the watermark.
func (d *Detector) checkMessages(ctx context.Context, sess *Session) error {
	err := d.scanMessages(ctx, sess)

	var upstream *graph.UpstreamError
	if errors.As(err, &upstream) && upstream.AuthFailure() {
		d.logger.Warn("Authorization rejected during message check, refreshing token",
			zap.Int("status", upstream.StatusCode))
		if _, refreshErr := d.tokens.ForceRefresh(ctx); refreshErr != nil {
			return fmt.Errorf("token refresh after authorization failure: %w", refreshErr)
		}
		err = d.scanMessages(ctx, sess)
	}

	return err
}

func (d *Detector) scanMessages(ctx context.Context, sess *Session) error {
	chats, err := d.client.ListChats(ctx)
	if err != nil {
		return err
	}

	for _, chat := range chats {
		messages, err := d.client.ListChatMessages(ctx, chat.ID, d.pageSize)
		if err != nil {
			return err
		}

		// Pages arrive most-recent-first; notify in chronological order.
		sort.Slice(messages, func(i, j int) bool {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		})

		for _, msg := range messages {
			if !msg.CreatedAt.After(sess.LastMessageCheck) {
				continue
			}
			if chat.Type != models.ChatOneOnOne && !msg.MentionsUser(sess.Identity.ID) {
				continue
			}

			d.logger.Info("New message",
				zap.String("from", msg.From),
				zap.String("chat", chat.Topic),
				zap.String("chat_type", chat.Type.String()),
				zap.Time("created_at", msg.CreatedAt))
			d.notifier.Play(d.soundPath)
		}
	}

	sess.LastMessageCheck = d.now()
	return nil
}

// checkEvents scans today's calendar for invitations the identity has
// not responded to. Unlike the message check there is no
// refresh-and-retry here; the message check runs first and resolves any
// pending credential problem for the shared token.
func (d *Detector) checkEvents(ctx context.Context, sess *Session) error {
	now := d.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := d.client.ListCalendarView(ctx, dayStart, dayEnd)
	if err != nil {
		return err
	}

	for _, event := range events {
		if !event.CreatedAt.After(sess.LastEventCheck) && !event.LastModifiedAt.After(sess.LastEventCheck) {
			continue
		}
		if !awaitingResponse(event, sess.Identity.PrincipalName) {
			continue
		}

		d.logger.Info("New calendar invitation",
			zap.String("subject", event.Subject),
			zap.String("organizer", event.Organizer),
			zap.Time("starts_at", event.StartTime))
		d.notifier.Play(d.soundPath)
	}

	sess.LastEventCheck = d.now()
	return nil
}

// awaitingResponse reports whether principal appears among the event's
// attendees with no response recorded yet.
func awaitingResponse(event models.CalendarEvent, principal string) bool {
	for _, attendee := range event.Attendees {
		if strings.EqualFold(attendee.Email, principal) {
			return attendee.Response == models.ResponseNone
		}
	}
	return false
}
