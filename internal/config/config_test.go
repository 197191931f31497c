package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdResolution(t *testing.T) {
	p := ProviderConfig{
		Thresholds: map[string]int{
			"claude":           150000,
			"gemini":           1500000,
			"gemini-2.5-flash": 750000,
		},
		DefaultThreshold: 100000,
	}

	// Exact match beats prefix match.
	assert.Equal(t, 750000, p.Threshold("gemini-2.5-flash"))
	// Longest prefix wins.
	assert.Equal(t, 750000, p.Threshold("gemini-2.5-flash-latest"))
	assert.Equal(t, 1500000, p.Threshold("gemini-2.5-pro"))
	assert.Equal(t, 150000, p.Threshold("claude-sonnet-4-5-20250929"))
	// Case and whitespace normalized.
	assert.Equal(t, 150000, p.Threshold("  Claude-Opus "))
	// Unknown falls back to the default.
	assert.Equal(t, 100000, p.Threshold("mistral-large"))
}

func TestThresholdHardFallback(t *testing.T) {
	assert.Equal(t, 150000, ProviderConfig{}.Threshold("anything"))
}

func TestPricingForModel(t *testing.T) {
	p := PricingConfig{
		Models: map[string]ModelPricing{
			"gpt-4o": {InputPer1K: 0.0025, OutputPer1K: 0.01},
		},
		Default: ModelPricing{InputPer1K: 0.003, OutputPer1K: 0.015},
	}

	assert.Equal(t, 0.0025, p.ForModel("GPT-4o").InputPer1K)
	assert.Equal(t, 0.015, p.ForModel("unknown").OutputPer1K)
}
