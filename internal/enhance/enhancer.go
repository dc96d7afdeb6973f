package enhance

import (
	"context"
	"log"
	"strings"
)

// Enhancer turns short user prompts into production-grade music
// descriptions the generator responds better to.
type Enhancer struct {
	client *Client
}

// NewEnhancer creates an enhancer backed by an Ollama client.
func NewEnhancer(client *Client) *Enhancer {
	return &Enhancer{client: client}
}

// enhanceSystemPrompt instructs the LLM to expand a music prompt.
const enhanceSystemPrompt = `You are a music prompt enhancer for a real-time AI music generator.

Given a short user prompt, rewrite it as ONE richer description of 10-25 words.

Rules:
- Describe the SOUND: instruments, timbre, effects, tempo, mood, production style.
- Be SPECIFIC: "warm Rhodes piano with gentle chorus" not just "piano"
- Keep the user's core idea intact, never change the genre they asked for
- Include mood or atmosphere words
- No lyrics, vocals, or story elements

Output ONLY the rewritten prompt. No quotes, no preamble, no explanations.

/no_think`

// Enhance rewrites a prompt. On any failure it returns the original
// text so the caller never loses input.
func (e *Enhancer) Enhance(ctx context.Context, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return prompt
	}

	enhanced, err := e.client.Generate(ctx, enhanceSystemPrompt, prompt)
	if err != nil {
		log.Printf("Prompt enhance failed: %v", err)
		return prompt
	}

	enhanced = cleanOutput(enhanced)
	if enhanced == "" || len(enhanced) < len(prompt)/2 || len(enhanced) > 300 {
		log.Printf("Prompt enhance returned unusable output: %q", enhanced)
		return prompt
	}

	log.Printf("Prompt enhanced: %q -> %q", prompt, enhanced)
	return enhanced
}

// cleanOutput strips common LLM artifacts.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)

	// Thinking-mode leakage
	if idx := strings.Index(s, "</think>"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("</think>"):])
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	prefixes := []string{
		"Here's the prompt:",
		"Here is the prompt:",
		"Enhanced prompt:",
		"Prompt:",
	}
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			s = strings.TrimSpace(s[len(p):])
		}
	}

	return strings.TrimSpace(s)
}
