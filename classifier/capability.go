package classifier

import (
	"context"
	"fmt"
	"strings"

	"repairer-discovery/llm"
)

// Capability asks an AI model whether a listing is a device-repair business.
// The returned text is expected to contain one JSON object, possibly wrapped in prose.
type Capability interface {
	Classify(ctx context.Context, name, address, description string) (string, error)
}

// PromptCapability turns a text Generator into a Capability.
type PromptCapability struct {
	gen llm.Generator
}

// NewPromptCapability wraps gen with the classification prompt.
func NewPromptCapability(gen llm.Generator) *PromptCapability {
	return &PromptCapability{gen: gen}
}

func (p *PromptCapability) Classify(ctx context.Context, name, address, description string) (string, error) {
	text, err := p.gen.GenerateContent(ctx, buildPrompt(name, address, description))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func buildPrompt(name, address, description string) string {
	if strings.TrimSpace(description) == "" {
		description = "(none)"
	}

	var sb strings.Builder
	sb.WriteString("You review French business listings for a directory of phone, tablet and computer repair shops.\n")
	sb.WriteString("Decide whether the business below genuinely repairs electronic devices.\n\n")
	sb.WriteString(fmt.Sprintf("Name: %s\nAddress: %s\nDescription: %s\n\n", name, address, description))
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(`{
  "isRepairer": boolean,
  "confidence": number between 0 and 1,
  "services": ["string"],
  "specialties": ["string"],
  "priceRange": "low" | "medium" | "high",
  "reason": "string"
}`)
	sb.WriteString("\nDo not add markdown or explanations outside the JSON object.\n")
	return sb.String()
}
