package music

// Prompt is a user-authored text prompt with an influence weight.
// Weight 0 keeps the prompt in the UI but excludes it from outbound sets.
type Prompt struct {
	ID     string  `json:"promptId"`
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
	Color  string  `json:"color"`
}

// WeightedPrompt is the wire form sent to the generation session.
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

const (
	MinWeight = 0.0
	MaxWeight = 2.0
)

// ClampWeight bounds a slider value to the valid prompt weight range.
func ClampWeight(w float64) float64 {
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}
