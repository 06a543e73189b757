package font

// fontConfig holds construction-only settings of New.
type fontConfig struct {
	low, high rune
}

// FontBuilderOption is a functional option for configuring font rasterization.
type FontBuilderOption func(*fontConfig)

// WithRunes sets the inclusive rune range rasterized into the atlas.
// Defaults to printable ASCII (' '..'~').
//
// Parameters:
//   - low: the first rune
//   - high: the last rune
//
// Returns:
//   - FontBuilderOption: a function that applies the range
func WithRunes(low, high rune) FontBuilderOption {
	return func(c *fontConfig) {
		c.low, c.high = low, high
	}
}
