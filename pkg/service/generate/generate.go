package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/utils/logging"
)

// Generator produces articles through an LLM client
type Generator struct {
	llmClient gollem.LLMClient
}

var _ interfaces.ContentGenerator = &Generator{}

// New creates a content generator backed by the given LLM client
func New(llmClient gollem.LLMClient) (*Generator, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	return &Generator{llmClient: llmClient}, nil
}

// articlePayload is the JSON shape requested from the model
type articlePayload struct {
	Content         string   `json:"content"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	Citations       []string `json:"citations"`
}

// Generate asks the model for an article and decodes the structured response.
// When the model returns non-JSON output, the raw text is kept as content so
// a sloppy response still produces a usable article.
func (g *Generator) Generate(ctx context.Context, req *model.GenerateRequest) (*model.Article, error) {
	session, err := g.llmClient.NewSession(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	prompt := buildPrompt(req)
	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("topic", req.Topic))
	}

	text := strings.TrimSpace(strings.Join(resp.Texts, "\n"))
	if text == "" {
		return nil, goerr.New("content generator returned empty output", goerr.V("topic", req.Topic))
	}

	var payload articlePayload
	if err := json.Unmarshal([]byte(stripFence(text)), &payload); err != nil {
		logging.From(ctx).Warn("content generator returned non-JSON output, using raw text",
			"topic", req.Topic)
		payload = articlePayload{Content: text, MetaTitle: req.Topic}
	}

	return &model.Article{
		Content:         payload.Content,
		MetaTitle:       payload.MetaTitle,
		MetaDescription: payload.MetaDescription,
		Citations:       payload.Citations,
	}, nil
}

func buildPrompt(req *model.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write an SEO-optimized article about %q for the site %s.\n", req.Topic, req.SiteURL)
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Target keywords: %s.\n", strings.Join(req.Keywords, ", "))
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "Language: %s.\n", req.Language)
	}
	b.WriteString("Respond with a JSON object with fields: content, meta_title, meta_description, citations.")
	return b.String()
}

// stripFence removes a surrounding markdown code fence if present
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
