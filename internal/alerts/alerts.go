// Package alerts tells moderators about content the moderation check wants
// removed.
package alerts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

const maxExcerpt = 120

type Alert struct {
	HubID   int
	PostID  int
	Author  string
	Content string
	Result  models.ModerationResult
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Required reports whether a verdict warrants telling a moderator.
func Required(r models.ModerationResult) bool {
	return r.Severity == models.SeverityHigh || r.Action == models.ActionRemove
}

// Message renders the alert as a short text message.
func Message(a Alert) string {
	excerpt := strings.Join(strings.Fields(a.Content), " ")
	if r := []rune(excerpt); len(r) > maxExcerpt {
		excerpt = string(r[:maxExcerpt]) + "..."
	}
	return fmt.Sprintf("[%s/%s] hub %d post %d by %s: %s (%q)",
		a.Result.Severity, a.Result.Action, a.HubID, a.PostID, a.Author, a.Result.Reason, excerpt)
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, a Alert) error {
	log.Printf("moderation alert: %s", Message(a))
	return nil
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	// To is a comma separated list of recipients.
	To string
}

func (c TwilioConfig) complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.To != ""
}

// messageAPI is the part of the Twilio REST client used to send SMS.
type messageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

type TwilioNotifier struct {
	api  messageAPI
	from string
	to   []string
}

// New returns a Twilio notifier when cfg is complete and a log notifier
// otherwise.
func New(cfg TwilioConfig) Notifier {
	if !cfg.complete() {
		return LogNotifier{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return newTwilio(client.Api, cfg.From, cfg.To)
}

func newTwilio(api messageAPI, from, to string) *TwilioNotifier {
	n := &TwilioNotifier{api: api, from: from}
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			n.to = append(n.to, r)
		}
	}
	return n
}

func (n *TwilioNotifier) Notify(ctx context.Context, a Alert) error {
	body := Message(a)
	for _, to := range n.to {
		if err := ctx.Err(); err != nil {
			return err
		}
		params := &openapi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(n.from)
		params.SetBody(body)
		if _, err := n.api.CreateMessage(params); err != nil {
			return fmt.Errorf("send alert to %s: %w", to, err)
		}
	}
	return nil
}

// Dispatch sends a in the background; failures are logged.
func Dispatch(n Notifier, a Alert, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := n.Notify(ctx, a); err != nil {
			log.Printf("moderation alert for post %d failed: %v", a.PostID, err)
		}
	}()
}
