// Package summary produces the one-paragraph synopsis attached to every
// change request, using any OpenAI-compatible chat completions endpoint.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"change-request-tracker/internal/core/cache"
	"change-request-tracker/internal/domain"
)

type Input struct {
	Description string
	Reason      string
	Impact      string
	System      string
}

type Options struct {
	BaseURL  string
	APIKey   string
	Model    string
	CacheTTL time.Duration
}

type Client struct {
	api        openai.Client
	model      string
	configured bool
	cache      *cache.Cache
	ttl        time.Duration
	log        *zap.Logger
}

type entry struct {
	Text string `json:"text"`
}

// NewClient builds a client. Without an API key every call fails with
// domain.ErrExternalService and callers fall back.
func NewClient(o Options, c *cache.Cache, l *zap.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithMaxRetries(0),
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if c == nil {
		c = &cache.Cache{}
	}
	return &Client{
		api:        openai.NewClient(opts...),
		model:      o.Model,
		configured: o.APIKey != "",
		cache:      c,
		ttl:        o.CacheTTL,
		log:        l,
	}
}

func (c *Client) Summarize(ctx context.Context, in Input) (string, error) {
	if !c.configured {
		return "", fmt.Errorf("%w: summarizer api key not configured", domain.ErrExternalService)
	}
	prompt := Prompt(in)
	sum := sha256.Sum256([]byte(c.model + "\x00" + prompt))
	key := "summary:" + hex.EncodeToString(sum[:])

	e, err := cache.GetOrLoadJSON(c.cache, ctx, key, c.ttl, func(ctx context.Context) (*entry, error) {
		text, err := c.complete(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return &entry{Text: text}, nil
	})
	if err != nil {
		return "", err
	}
	if e == nil || e.Text == "" {
		return "", fmt.Errorf("%w: empty summary", domain.ErrExternalService)
	}
	return e.Text, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return "", errors.Join(domain.ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrExternalService)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Debug("summary generated",
		zap.String("model", c.model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func Prompt(in Input) string {
	var b strings.Builder
	b.WriteString("Summarize the following IT change request into a single, concise paragraph.\n")
	b.WriteString("Focus on the core objective, the justification, and the potential business or technical impact.\n")
	b.WriteString("Be professional and clear.\n\n")
	b.WriteString("Change Request Details:\n")
	fmt.Fprintf(&b, "- System/Module: %s\n", in.System)
	fmt.Fprintf(&b, "- Description: %s\n", in.Description)
	fmt.Fprintf(&b, "- Reason for Change: %s\n", in.Reason)
	fmt.Fprintf(&b, "- Impact Assessment: %s\n\n", in.Impact)
	b.WriteString("Summary:")
	return b.String()
}
