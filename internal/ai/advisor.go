package ai

import (
	"context"
	"fmt"

	"github.com/shinyyama/internship-market/internal/reqctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type Advice struct {
	Verdict      Verdict
	CounterPrice *decimal.Decimal
	Raw          string
}

type OfferAdvisor interface {
	Advise(ctx context.Context, o OfferContext) (*Advice, error)
}

type GeminiAdvisor struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

func NewGeminiAdvisor(ctx context.Context, apiKey, model string, log *zap.Logger) (*GeminiAdvisor, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if log == nil {
		log = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiAdvisor{client: client, model: model, log: log}, nil
}

func (a *GeminiAdvisor) Advise(ctx context.Context, o OfferContext) (*Advice, error) {
	rid := reqctx.RequestID(ctx)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(BuildAdvicePrompt(o)),
		}, genai.RoleUser),
	}
	temp := float32(0)
	res, err := a.client.Models.GenerateContent(ctx, a.model, contents, &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		a.log.Warn("gemini generate failed", zap.String("rid", rid), zap.String("model", a.model), zap.Error(err))
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	raw := res.Text()
	verdict, price, err := ParseAdvice(raw)
	if err != nil {
		a.log.Warn("advice parse failed", zap.String("rid", rid), zap.String("text", raw), zap.Error(err))
		return nil, err
	}
	a.log.Debug("advice ready", zap.String("rid", rid), zap.String("verdict", string(verdict)))
	return &Advice{Verdict: verdict, CounterPrice: price, Raw: raw}, nil
}
