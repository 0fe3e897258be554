package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator 通过 Gemini 出题，每次调用从 KeyPool 中随机取 key
type GeminiGenerator struct {
	Keys           *KeyPool
	Model          string
	MaxSourceChars int
	Timeout        time.Duration
}

func NewGeminiGenerator(keys *KeyPool, modelName string, maxSourceChars int, timeout time.Duration) *GeminiGenerator {
	return &GeminiGenerator{
		Keys:           keys,
		Model:          modelName,
		MaxSourceChars: maxSourceChars,
		Timeout:        timeout,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) ([]CandidateQuestion, error) {
	key, err := g.Keys.Pick()
	if err != nil {
		return nil, &IngestionError{Stage: "config", Err: err}
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, &IngestionError{Stage: "client", Err: err}
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(BuildPrompt(req.Count, req.Text, g.MaxSourceChars))}
	if req.Document != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Document.MIMEType, Data: req.Document.Data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &IngestionError{Stage: "generate", Err: err}
	}

	raw := responseText(resp)
	cands, err := ParseCandidates(raw)
	if err != nil {
		return nil, &IngestionError{Stage: "parse", Err: err}
	}
	return cands, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// 只取第一个候选
		break
	}
	return sb.String()
}

func (g *GeminiGenerator) String() string {
	return fmt.Sprintf("gemini(%s, %d keys)", g.Model, g.Keys.Len())
}
