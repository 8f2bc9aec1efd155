package stage

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/pteargryphon/creative-brief-generator/internal/errlog"
	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
	"github.com/pteargryphon/creative-brief-generator/pkg/anthropic"
)

// LLM is the generative-text dependency shared by several stages.
type LLM struct {
	Client    anthropic.Client
	Model     string
	MaxTokens int64
}

func (l *LLM) available() error {
	if l == nil || l.Client == nil {
		return eris.Wrap(errlog.ErrMissingCredential, "anthropic")
	}
	return nil
}

// complete sends one system+user exchange and returns the text reply.
func (l *LLM) complete(ctx context.Context, d Deps, stage, system, prompt string, temperature float64) (string, error) {
	if err := l.available(); err != nil {
		return "", err
	}
	req := anthropic.MessageRequest{
		Model:       l.Model,
		MaxTokens:   l.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: system}},
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temperature,
	}

	resp, err := call(ctx, d, "anthropic", stage, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := l.Client.CreateMessage(ctx, req)
		if err != nil {
			if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(resp.Model, stage)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("anthropic: empty completion")
	}
	return text, nil
}

// completeJSON is complete followed by decodeJSON into out.
func (l *LLM) completeJSON(ctx context.Context, d Deps, stage, system, prompt string, temperature float64, out any) error {
	text, err := l.complete(ctx, d, stage, system, prompt, temperature)
	if err != nil {
		return err
	}
	return decodeJSON(text, out)
}

// decodeJSON parses a model reply that should be JSON. Markdown fences and
// prose around the first object or array are ignored.
func decodeJSON(text string, out any) error {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.IndexAny(s, "{["); start > 0 {
		s = s[start:]
	}
	if end := strings.LastIndexAny(s, "}]"); end >= 0 && end < len(s)-1 {
		s = s[:end+1]
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return eris.Wrap(err, "decode model json")
	}
	return nil
}

// stringList accepts either a JSON string or an array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one == "" {
		*l = nil
	} else {
		*l = []string{one}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
