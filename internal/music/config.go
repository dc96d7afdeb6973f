package music

// GenerationMode selects the generator's sampling trade-off.
type GenerationMode string

const (
	ModeQuality   GenerationMode = "QUALITY"
	ModeDiversity GenerationMode = "DIVERSITY"
)

// GenerationConfig holds the music generation parameters. All fields are
// optional; a nil field means "auto" and lets the server decide.
type GenerationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	TopK             *int            `json:"topK,omitempty"`
	Guidance         *float64        `json:"guidance,omitempty"`
	BPM              *int            `json:"bpm,omitempty"`
	Density          *float64        `json:"density,omitempty"`
	Brightness       *float64        `json:"brightness,omitempty"`
	Scale            *string         `json:"scale,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	MuteBass         *bool           `json:"muteBass,omitempty"`
	MuteDrums        *bool           `json:"muteDrums,omitempty"`
	OnlyBassAndDrums *bool           `json:"onlyBassAndDrums,omitempty"`
	GenerationMode   *GenerationMode `json:"musicGenerationMode,omitempty"`
}

// DefaultConfig returns the session-start configuration.
func DefaultConfig() GenerationConfig {
	t := 1.1
	k := 40
	g := 4.0
	return GenerationConfig{
		Temperature: &t,
		TopK:        &k,
		Guidance:    &g,
	}
}
