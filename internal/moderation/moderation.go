// Package moderation screens user content with the OpenAI moderation endpoint.
// It never blocks content: every failure degrades to an approve verdict.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/emilythestrangee/reddit-clone/community/internal/models"
)

const (
	DefaultModel = "omni-moderation-latest"

	minKeyLength = 10

	reasonNoKey      = "Moderation skipped - API key not configured"
	reasonInvalidKey = "Moderation skipped - Invalid API key"
	reasonApproved   = "Content approved"
)

// Moderator returns a verdict for a piece of content.
type Moderator interface {
	Moderate(ctx context.Context, content string) models.ModerationResult
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxRetries overrides the SDK retry count when positive.
	MaxRetries int
	// NoRetries sends each request once.
	NoRetries  bool
	HTTPClient *http.Client
}

type Service struct {
	client     openai.Client
	model      string
	timeout    time.Duration
	skip       string
	configured bool
}

// New builds a Service. A missing or malformed key is not an error: the
// service is then unconfigured and approves everything.
func New(cfg Config) *Service {
	s := &Service{model: cfg.Model, timeout: cfg.Timeout}
	if s.model == "" {
		s.model = DefaultModel
	}

	key := strings.TrimSpace(cfg.APIKey)
	switch {
	case key == "":
		s.skip = reasonNoKey
		return s
	case len(key) < minKeyLength:
		s.skip = reasonInvalidKey
		return s
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	switch {
	case cfg.NoRetries:
		opts = append(opts, option.WithMaxRetries(0))
	case cfg.MaxRetries > 0:
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	s.client = openai.NewClient(opts...)
	s.configured = true
	return s
}

// Configured reports whether requests are actually sent to the API.
func (s *Service) Configured() bool {
	return s.configured
}

func (s *Service) Moderate(ctx context.Context, content string) models.ModerationResult {
	if !s.configured {
		return models.ModerationResult{
			Severity:   models.SeverityLow,
			Action:     models.ActionApprove,
			Reason:     s.skip,
			Confidence: 1.0,
		}
	}

	result, err := s.check(ctx, content)
	if err != nil {
		log.Printf("moderation error: %v", err)
		return models.ModerationResult{
			Severity:   models.SeverityLow,
			Action:     models.ActionApprove,
			Reason:     fmt.Sprintf("Moderation error: %v", err),
			Confidence: 0.5,
		}
	}
	return result
}

func (s *Service) check(ctx context.Context, content string) (models.ModerationResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(content)},
		Model: openai.ModerationModel(s.model),
	})
	if err != nil {
		return models.ModerationResult{}, err
	}
	if len(resp.Results) == 0 {
		return models.ModerationResult{}, errors.New("empty moderation response")
	}
	return verdict(resp.Results[0]), nil
}

// verdict maps the first flagged category family to a severity and action.
func verdict(m openai.Moderation) models.ModerationResult {
	cats := categories(m)

	maxScore := 0.0
	for _, c := range cats {
		maxScore = max(maxScore, c.score)
	}

	if !m.Flagged {
		return models.ModerationResult{
			Severity:   models.SeverityLow,
			Action:     models.ActionApprove,
			Reason:     reasonApproved,
			Confidence: 1 - maxScore,
		}
	}

	var flagged []string
	severity, action := models.SeverityLow, models.ActionFlag
	for _, c := range cats {
		if !c.flagged {
			continue
		}
		flagged = append(flagged, c.name)
		switch c.family {
		case familyHigh:
			severity, action = models.SeverityHigh, models.ActionRemove
		case familyMedium:
			if severity != models.SeverityHigh {
				severity = models.SeverityMedium
			}
		}
	}

	return models.ModerationResult{
		IsFlagged:  true,
		Severity:   severity,
		Action:     action,
		Reason:     "Flagged for: " + strings.Join(flagged, ", "),
		Confidence: maxScore,
	}
}

type family int

const (
	familyOther family = iota
	familyMedium
	familyHigh
)

type category struct {
	name    string
	family  family
	flagged bool
	score   float64
}

func categories(m openai.Moderation) []category {
	c, s := m.Categories, m.CategoryScores
	return []category{
		{"hate", familyHigh, c.Hate, s.Hate},
		{"hate/threatening", familyHigh, c.HateThreatening, s.HateThreatening},
		{"violence", familyHigh, c.Violence, s.Violence},
		{"violence/graphic", familyHigh, c.ViolenceGraphic, s.ViolenceGraphic},
		{"sexual/minors", familyHigh, c.SexualMinors, s.SexualMinors},
		{"harassment", familyMedium, c.Harassment, s.Harassment},
		{"harassment/threatening", familyMedium, c.HarassmentThreatening, s.HarassmentThreatening},
		{"self-harm", familyMedium, c.SelfHarm, s.SelfHarm},
		{"self-harm/intent", familyMedium, c.SelfHarmIntent, s.SelfHarmIntent},
		{"self-harm/instructions", familyMedium, c.SelfHarmInstructions, s.SelfHarmInstructions},
		{"sexual", familyOther, c.Sexual, s.Sexual},
		{"illicit", familyOther, c.Illicit, s.Illicit},
		{"illicit/violent", familyOther, c.IllicitViolent, s.IllicitViolent},
	}
}
