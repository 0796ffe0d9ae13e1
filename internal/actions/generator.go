// Package actions holds the collaborators that turn an anomaly into a
// reviewable fix: the model-backed recommendation generator and the GitHub
// change-proposal sink.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/domain/recommendation"
	"github.com/pratik-mahalle/costpilot/internal/pkg/errors"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

const systemPrompt = `You are a senior cloud infrastructure engineer specializing in cloud cost optimization.
You receive anomaly data from an automated detection system along with relevant
documentation context from a knowledge base.

Your job is to:
1. Analyze the root cause of the cost anomaly or waste pattern.
2. Recommend specific, actionable steps to reduce costs.
3. Generate working Terraform HCL code that implements the fix.
4. Estimate the monthly savings in USD.
5. Assess the risk level (low / medium / high).
6. Provide a rollback plan.

IMPORTANT:
- The Terraform code MUST be valid, complete HCL that can be applied directly.
- Use variables for any values that should be configurable.
- Include relevant tags for cost tracking.
- Always respond in the exact JSON format specified below.`

const userPromptTemplate = `ANOMALY DETAILS:
  Service: %s
  Resource: %s
  Issue Type: %s
  Current Cost: $%.2f/month
  Expected Cost: $%.2f/month
  Waste Score: %d/100
  Metrics: %s
  Account: %s
  Region: %s

RELEVANT DOCUMENTATION:
%s

Respond in this exact JSON format:
{
  "root_cause": "Detailed explanation of why this anomaly occurred",
  "actions": ["Step 1 description", "Step 2 description"],
  "terraform_code": "Full HCL code block as a single string",
  "savings_estimate": 123.45,
  "risk_level": "low|medium|high",
  "rollback_plan": "Step-by-step rollback instructions",
  "confidence": 0.85
}`

// Generator produces structured recommendations via the OpenAI chat API.
// It implements remediation.Generator.
type Generator struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *logger.Logger
}

// NewGenerator creates a recommendation generator
func NewGenerator(cfg config.OpenAIConfig, log *logger.Logger) *Generator {
	return &Generator{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    log,
	}
}

// generatorPayload mirrors the JSON contract in the prompt
type generatorPayload struct {
	RootCause       string   `json:"root_cause"`
	Actions         []string `json:"actions"`
	TerraformCode   string   `json:"terraform_code"`
	SavingsEstimate float64  `json:"savings_estimate"`
	RiskLevel       string   `json:"risk_level"`
	RollbackPlan    string   `json:"rollback_plan"`
	Confidence      *float64 `json:"confidence"`
}

// Generate calls the model with the anomaly and retrieved context and parses
// the structured recommendation out of the response. An unparseable response
// is returned as an error; the orchestrator treats it as a stage failure.
func (g *Generator) Generate(ctx context.Context, a *anomaly.Anomaly, docContext string) (*recommendation.Recommendation, error) {
	g.logger.Infof("Requesting recommendation for %s anomaly on %s", a.IssueType, a.Service)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: g.userPrompt(a, docContext)},
		},
	})
	if err != nil {
		return nil, errors.ProviderAPIError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Malformed("openai", fmt.Errorf("response contained no choices"))
	}

	payload, err := parsePayload(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	rec := buildRecommendation(a, payload)
	g.logger.Infof("Generated recommendation: savings=$%.2f/mo, risk=%s, confidence=%.0f%%",
		rec.SavingsEstimate, rec.RiskLevel, rec.Confidence*100)
	return rec, nil
}

func (g *Generator) userPrompt(a *anomaly.Anomaly, docContext string) string {
	metricsJSON, _ := json.MarshalIndent(a.Metrics, "", "  ")
	return fmt.Sprintf(userPromptTemplate,
		a.Service,
		orNA(a.ResourceID),
		a.IssueType,
		a.CurrentCost,
		a.ExpectedCost,
		a.WasteScore,
		string(metricsJSON),
		orNA(a.Account),
		orNA(a.Region),
		docContext,
	)
}

// parsePayload extracts the JSON object from the response text, tolerating
// surrounding prose or markdown fences.
func parsePayload(text string) (*generatorPayload, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.Malformed("openai", fmt.Errorf("no JSON object in response: %.200s", text))
	}

	var payload generatorPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, errors.Malformed("openai", err)
	}
	return &payload, nil
}

// buildRecommendation applies graceful-degradation defaults for optional
// fields the model may omit.
func buildRecommendation(a *anomaly.Anomaly, p *generatorPayload) *recommendation.Recommendation {
	rootCause := p.RootCause
	if rootCause == "" {
		rootCause = "Unable to determine root cause"
	}
	rollback := p.RollbackPlan
	if rollback == "" {
		rollback = "Revert the Terraform change and apply"
	}
	confidence := recommendation.DefaultConfidence
	if p.Confidence != nil {
		confidence = *p.Confidence
	}
	savings := p.SavingsEstimate
	if savings < 0 {
		savings = 0
	}

	return &recommendation.Recommendation{
		Anomaly:         a,
		RootCause:       rootCause,
		Actions:         p.Actions,
		ChangeProposal:  p.TerraformCode,
		SavingsEstimate: savings,
		RiskLevel:       recommendation.ParseRiskLevel(strings.ToLower(p.RiskLevel)),
		RollbackPlan:    rollback,
		Confidence:      confidence,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
