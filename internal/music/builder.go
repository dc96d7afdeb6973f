package music

// ConfigBuilder accumulates partial updates onto a prior complete
// configuration. Passing nil to an optional setter explicitly clears the
// field ("back to auto"), which is distinct from omitting the field from
// an ApplyUpdates call (no change).
type ConfigBuilder struct {
	cfg GenerationConfig
}

// FromConfig creates a builder seeded with a copy of an existing config.
func FromConfig(cfg GenerationConfig) *ConfigBuilder {
	return &ConfigBuilder{cfg: cfg}
}

// WithTemperature sets randomness (0.0 to 3.0).
func (b *ConfigBuilder) WithTemperature(v float64) *ConfigBuilder {
	b.cfg.Temperature = &v
	return b
}

// WithTopK sets sampling diversity (1 to 100).
func (b *ConfigBuilder) WithTopK(v int) *ConfigBuilder {
	b.cfg.TopK = &v
	return b
}

// WithGuidance sets prompt adherence (0.0 to 6.0).
func (b *ConfigBuilder) WithGuidance(v float64) *ConfigBuilder {
	b.cfg.Guidance = &v
	return b
}

// WithBPM sets beats per minute (60 to 200). Nil clears.
func (b *ConfigBuilder) WithBPM(v *int) *ConfigBuilder {
	b.cfg.BPM = v
	return b
}

// WithDensity sets note density (0.0 to 1.0). Nil clears.
func (b *ConfigBuilder) WithDensity(v *float64) *ConfigBuilder {
	b.cfg.Density = v
	return b
}

// WithBrightness sets tonal quality (0.0 to 1.0). Nil clears.
func (b *ConfigBuilder) WithBrightness(v *float64) *ConfigBuilder {
	b.cfg.Brightness = v
	return b
}

// WithScale sets the musical scale token, e.g. "C_MAJOR_A_MINOR". Nil clears.
func (b *ConfigBuilder) WithScale(v *string) *ConfigBuilder {
	b.cfg.Scale = v
	return b
}

// WithSeed sets the random seed for reproducible generation. Nil clears.
func (b *ConfigBuilder) WithSeed(v *int) *ConfigBuilder {
	b.cfg.Seed = v
	return b
}

// WithMuteBass toggles the bass stem. Nil clears.
func (b *ConfigBuilder) WithMuteBass(v *bool) *ConfigBuilder {
	b.cfg.MuteBass = v
	return b
}

// WithMuteDrums toggles the drum stem. Nil clears.
func (b *ConfigBuilder) WithMuteDrums(v *bool) *ConfigBuilder {
	b.cfg.MuteDrums = v
	return b
}

// WithOnlyBassAndDrums restricts output to bass and drums. Nil clears.
func (b *ConfigBuilder) WithOnlyBassAndDrums(v *bool) *ConfigBuilder {
	b.cfg.OnlyBassAndDrums = v
	return b
}

// WithGenerationMode sets QUALITY or DIVERSITY. Nil clears.
func (b *ConfigBuilder) WithGenerationMode(v *GenerationMode) *ConfigBuilder {
	b.cfg.GenerationMode = v
	return b
}

// ApplyUpdates merges every present (non-nil) field of a partial update.
// Absent fields are left untouched; use the WithX setters with nil to clear.
func (b *ConfigBuilder) ApplyUpdates(u GenerationConfig) *ConfigBuilder {
	if u.Temperature != nil {
		b.cfg.Temperature = u.Temperature
	}
	if u.TopK != nil {
		b.cfg.TopK = u.TopK
	}
	if u.Guidance != nil {
		b.cfg.Guidance = u.Guidance
	}
	if u.BPM != nil {
		b.cfg.BPM = u.BPM
	}
	if u.Density != nil {
		b.cfg.Density = u.Density
	}
	if u.Brightness != nil {
		b.cfg.Brightness = u.Brightness
	}
	if u.Scale != nil {
		b.cfg.Scale = u.Scale
	}
	if u.Seed != nil {
		b.cfg.Seed = u.Seed
	}
	if u.MuteBass != nil {
		b.cfg.MuteBass = u.MuteBass
	}
	if u.MuteDrums != nil {
		b.cfg.MuteDrums = u.MuteDrums
	}
	if u.OnlyBassAndDrums != nil {
		b.cfg.OnlyBassAndDrums = u.OnlyBassAndDrums
	}
	if u.GenerationMode != nil {
		b.cfg.GenerationMode = u.GenerationMode
	}
	return b
}

// Build returns the accumulated configuration.
func (b *ConfigBuilder) Build() GenerationConfig {
	return b.cfg
}
