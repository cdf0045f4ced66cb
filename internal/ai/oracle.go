// file: internal/ai/oracle.go
// version: 1.0.0
// guid: 6e1f3a5b-8c2d-4a7e-9b0f-1d2c3e4f5a6b

// Package ai verifies ambiguous series matches with an OpenAI-compatible
// chat completions endpoint.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jdfalk/manga-organizer/internal/matcher"
	"github.com/jdfalk/manga-organizer/internal/metrics"
)

// ErrOracleDisabled is returned when the oracle is switched off.
var ErrOracleDisabled = errors.New("oracle is disabled")

const (
	defaultModel       = "gemini-2.0-flash"
	defaultMaxAttempts = 5
)

// OracleConfig configures an OracleClient.
type OracleConfig struct {
	Enabled     bool
	APIKeys     []string
	Model       string
	BaseURL     string
	MinInterval time.Duration // spacing between requests across all keys
	KeyCooldown time.Duration // how long a rate limited key is parked
	MaxAttempts int
	Clock       clockwork.Clock
	HTTPClient  *http.Client
}

// OracleClient implements matcher.Oracle.
type OracleClient struct {
	cfg     OracleConfig
	keys    *KeyRotator
	limiter *rate.Limiter

	mu      sync.Mutex
	clients map[int]*openai.Client
}

var _ matcher.Oracle = (*OracleClient)(nil)

// NewOracleClient validates cfg and creates a client.
func NewOracleClient(cfg OracleConfig) (*OracleClient, error) {
	if !cfg.Enabled {
		return nil, ErrOracleDisabled
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.KeyCooldown <= 0 {
		cfg.KeyCooldown = 90 * time.Second
	}

	keys := NewKeyRotator(cfg.APIKeys, cfg.KeyCooldown, cfg.Clock)
	if keys.Len() == 0 {
		return nil, ErrNoKeys
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	log.Info().Int("keys", keys.Len()).Str("model", cfg.Model).Msg("oracle configured")
	return &OracleClient{
		cfg:     cfg,
		keys:    keys,
		limiter: rate.NewLimiter(limit, 1),
		clients: make(map[int]*openai.Client),
	}, nil
}

// Keys exposes the key rotator.
func (c *OracleClient) Keys() *KeyRotator {
	return c.keys
}

func (c *OracleClient) clientFor(idx int, key string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[idx]; ok {
		return client
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.cfg.BaseURL))
	}
	if c.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)
	c.clients[idx] = &client
	return &client
}

// Verify asks the model whether filename belongs to one of the shortlisted
// series. Rate limited keys are rotated out; the call gives up after
// MaxAttempts or when every key is cooling down.
func (c *OracleClient) Verify(ctx context.Context, filename string, shortlist []matcher.Candidate) (matcher.OracleVerdict, error) {
	if len(shortlist) == 0 {
		return matcher.OracleVerdict{Matched: false, Reason: "empty shortlist"}, nil
	}
	systemPrompt, userPrompt := buildPrompt(filename, shortlist)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		idx, key, err := c.keys.Current()
		if err != nil {
			metrics.IncOracleCall("no_key")
			return matcher.OracleVerdict{}, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return matcher.OracleVerdict{}, fmt.Errorf("oracle rate limiter: %w", err)
		}

		content, err := c.complete(ctx, c.clientFor(idx, key), systemPrompt, userPrompt)
		if err == nil {
			verdict, perr := parseVerdict(content, shortlist)
			if perr != nil {
				metrics.IncOracleCall("bad_response")
				return matcher.OracleVerdict{}, perr
			}
			metrics.IncOracleCall("ok")
			return verdict, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return matcher.OracleVerdict{}, ctx.Err()
		}
		switch {
		case isRateLimited(err):
			metrics.IncOracleCall("rate_limited")
			c.keys.MarkRateLimited(idx)
		case isKeyRejected(err):
			metrics.IncOracleCall("key_rejected")
			c.keys.MarkInvalid(idx)
		default:
			metrics.IncOracleCall("error")
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max", c.cfg.MaxAttempts).Str("filename", filename).Msg("oracle request failed")
	}
	return matcher.OracleVerdict{}, fmt.Errorf("oracle failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *OracleClient) complete(ctx context.Context, client *openai.Client, systemPrompt, userPrompt string) (string, error) {
	jsonObjectFormat := shared.NewResponseFormatJSONObjectParam()

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       shared.ChatModel(c.cfg.Model),
		Temperature: param.NewOpt(0.1),
		MaxTokens:   param.NewOpt[int64](500),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &jsonObjectFormat,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in oracle response")
	}
	return completion.Choices[0].Message.Content, nil
}

func statusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isRateLimited(err error) bool {
	if statusCode(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource has been exhausted")
}

func isKeyRejected(err error) bool {
	switch statusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// oracleResponse is the JSON object the model is asked to return.
type oracleResponse struct {
	MatchesExisting    bool            `json:"matches_existing"`
	MatchedSeriesID    string          `json:"matched_series_id"`
	MatchedSeriesCode  string          `json:"matched_series_code"`
	MatchedSeriesTitle string          `json:"matched_series_title"`
	Confidence         json.RawMessage `json:"confidence"`
	Reason             string          `json:"reason"`
}

// parseVerdict decodes the model output and resolves the matched series
// against the shortlist by id, then code, then title.
func parseVerdict(content string, shortlist []matcher.Candidate) (matcher.OracleVerdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return matcher.OracleVerdict{}, fmt.Errorf("no JSON object in oracle response")
	}
	raw := content[start : end+1]

	var resp oracleResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return matcher.OracleVerdict{}, fmt.Errorf("failed to parse oracle response: %w", err)
	}

	verdict := matcher.OracleVerdict{
		Matched:    resp.MatchesExisting,
		Confidence: parseConfidence(resp.Confidence),
		Reason:     resp.Reason,
		Raw:        raw,
	}
	if !verdict.Matched {
		return verdict, nil
	}

	for _, c := range shortlist {
		switch {
		case resp.MatchedSeriesID != "" && c.ID == resp.MatchedSeriesID,
			resp.MatchedSeriesCode != "" && strings.EqualFold(c.Code, resp.MatchedSeriesCode),
			resp.MatchedSeriesTitle != "" && strings.EqualFold(c.TitleCanonical, resp.MatchedSeriesTitle):
			verdict.SeriesID = c.ID
			return verdict, nil
		}
	}
	// Unknown series: keep what the model said so the matcher can reject it.
	verdict.SeriesID = resp.MatchedSeriesID
	if verdict.SeriesID == "" {
		verdict.SeriesID = resp.MatchedSeriesCode
	}
	return verdict, nil
}

// parseConfidence accepts "high"/"medium"/"low" or a number.
func parseConfidence(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}
