package soil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTexture(t *testing.T) {
	tests := []struct {
		sand, clay float64
		want       string
	}{
		{50, 45, TextureSandyClay},
		{5, 50, TextureSiltyClay},
		{30, 45, TextureClay},
		{50, 30, TextureSandyClayLoam},
		{10, 30, TextureSiltyClayLoam},
		{35, 30, TextureClayLoam},
		{40, 20, TextureLoam},
		{5, 10, TextureSilt},
		{25, 10, TextureSiltLoam},
		{90, 5, TextureSand},
		{75, 10, TextureLoamySand},
		{60, 10, TextureSandyLoam},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTexture(tt.sand, tt.clay), "sand=%g clay=%g", tt.sand, tt.clay)
	}
}

func TestClassifyTextureBoundaries(t *testing.T) {
	// clay thresholds are inclusive, sand thresholds at 45 are exclusive
	assert.Equal(t, TextureClay, ClassifyTexture(45, 40))
	assert.Equal(t, TextureClayLoam, ClassifyTexture(45, 27))
	assert.Equal(t, TextureLoam, ClassifyTexture(80, 20))
	assert.Equal(t, TextureSilt, ClassifyTexture(20, 0))
	assert.Equal(t, TextureSand, ClassifyTexture(85, 0))
}

func TestClassifyTextureIsTotal(t *testing.T) {
	known := make(map[string]bool, len(TextureClasses))
	for _, c := range TextureClasses {
		known[c] = true
	}

	for sand := 0.0; sand <= 100; sand++ {
		for clay := 0.0; sand+clay <= 100; clay++ {
			got := ClassifyTexture(sand, clay)
			assert.True(t, known[got], "sand=%g clay=%g gave %q", sand, clay, got)
		}
	}
}
