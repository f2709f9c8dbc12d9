package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
)

const (
	draftRateLimit  = 10
	draftRateWindow = time.Minute
	maxPromptLen    = 10000
)

// Prompt-injection patterns rejected before anything reaches the model.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)`),
	regexp.MustCompile(`(?i)forget\s+(everything|all|your)\s+(you|instructions?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)`),
	regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`),
	regexp.MustCompile(`(?i)act\s+as\s+(if|though)\s+you`),
	regexp.MustCompile(`(?i)bypass\s+(your|the|all)\s+(rules?|restrictions?|safety)`),
	regexp.MustCompile(`(?i)override\s+(your|the|all)\s+(programming|instructions?)`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)DAN\s*mode`),
	regexp.MustCompile(`(?i)developer\s*mode`),
	regexp.MustCompile(`(?i)</?script\s*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)break\s+character`),
	regexp.MustCompile(`(?i)system\s+override`),
	regexp.MustCompile(`(?i)new\s+instructions?`),
	regexp.MustCompile(`(?i)roleplay\s+as`),
	regexp.MustCompile(`(?i)\[\[system\]\]`),
	regexp.MustCompile(`(?i)\[\[user\]\]`),
	regexp.MustCompile(`(?i)\[\[assistant\]\]`),
	regexp.MustCompile(`(?i)base64[:\s]`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`\$\{.*\}`),
}

// Patterns redacted from model output before it reaches a user.
var sensitiveOutputPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)api[_\-\s]?key`),
	regexp.MustCompile(`(?i)secret[_\-\s]?key`),
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]+`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`(?i)-----BEGIN\s+(RSA\s+)?PRIVATE\s+KEY-----`),
	regexp.MustCompile(`(?i)DATABASE_URL`),
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizePrompt rejects injection attempts and strips markup and control
// characters. Returns ErrPromptRejected on a blocklist hit.
func SanitizePrompt(input string) (string, error) {
	for _, p := range blockedPatterns {
		if p.MatchString(input) {
			return "", domain.ErrPromptRejected
		}
	}
	out := htmlTagPattern.ReplaceAllString(input, "")
	out = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, out)
	out = strings.TrimSpace(out)
	if len(out) > maxPromptLen {
		out = out[:maxPromptLen]
	}
	return out, nil
}

// ScrubOutput redacts anything secret-shaped from model output.
func ScrubOutput(output string) string {
	for _, p := range sensitiveOutputPatterns {
		output = p.ReplaceAllString(output, "[REDACTED]")
	}
	return output
}

// DraftingService fronts the model backend with guardrails: a prompt
// blocklist on the way in, secret scrubbing on the way out, and a per-user
// fixed-window rate limit in between.
type DraftingService struct {
	log     *slog.Logger
	drafter contracts.Drafter
	limiter contracts.RateLimiter
}

func NewDraftingService(log *slog.Logger, drafter contracts.Drafter, limiter contracts.RateLimiter) *DraftingService {
	return &DraftingService{log: log, drafter: drafter, limiter: limiter}
}

func (s *DraftingService) Available() bool {
	return s.drafter.Available()
}

func (s *DraftingService) draft(ctx context.Context, user domain.SessionUser, endpoint, system, prompt string) (string, error) {
	if !s.drafter.Available() {
		return "", domain.ErrDraftingUnavailable
	}
	clean, err := SanitizePrompt(prompt)
	if err != nil {
		s.log.WarnContext(ctx, "drafting - guardrail - prompt blocked", "user_id", user.ID, "endpoint", endpoint)
		return "", err
	}
	key := fmt.Sprintf("ai:rl:%d:%s", user.ID, endpoint)
	allowed, err := s.limiter.Allow(ctx, key, draftRateLimit, draftRateWindow)
	if err != nil {
		// Fail open: a limiter outage must not take drafting down with it.
		s.log.WarnContext(ctx, "drafting - guardrail - rate limit check failed", "user_id", user.ID, "err", err)
	} else if !allowed {
		s.log.WarnContext(ctx, "drafting - guardrail - rate limit hit", "user_id", user.ID, "endpoint", endpoint)
		return "", domain.ErrDraftingRateLimited
	}
	out, err := s.drafter.Draft(ctx, system, clean)
	if err != nil {
		s.log.ErrorContext(ctx, "drafting - draft - backend failed", "user_id", user.ID, "endpoint", endpoint, "err", err)
		return "", err
	}
	return ScrubOutput(out), nil
}

const summarySystemPrompt = `You are an operations analyst for a freight brokerage.
Summarize the provided metrics snapshot for leadership.
Use only the numbers given; never invent figures or totals.
Keep the summary under 200 words.`

// FreightSummary drafts a leadership summary from an intelligence report
// snapshot. The snapshot is serialized by the caller so the model sees only
// vetted numbers.
func (s *DraftingService) FreightSummary(ctx context.Context, user domain.SessionUser, snapshot string) (string, error) {
	if !domain.IsLeadership(user.Role) {
		return "", domain.ErrForbidden
	}
	return s.draft(ctx, user, "freight-summary", summarySystemPrompt, snapshot)
}

const outreachSystemPrompt = `You draft professional outreach messages for a freight brokerage dispatcher.
Write a short, friendly message to the carrier described below.
Use only the facts provided; never invent rates, lanes, or commitments.
Plain text only, no subject line.`

// CarrierOutreach drafts an outreach message to a carrier from dispatcher
// supplied context.
func (s *DraftingService) CarrierOutreach(ctx context.Context, user domain.SessionUser, carrierName, notes string) (string, error) {
	prompt := fmt.Sprintf("Carrier: %s\nContext: %s", carrierName, notes)
	return s.draft(ctx, user, "carrier-outreach", outreachSystemPrompt, prompt)
}
