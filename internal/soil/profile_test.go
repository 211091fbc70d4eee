package soil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flahasoil/internal/validation"
)

func TestBuildProfileDefaultDepth(t *testing.T) {
	p, err := BuildProfile(loamSample(), DefaultProfileDepth)
	require.NoError(t, err)

	require.Len(t, p.Horizons, 4)
	names := []HorizonName{HorizonO, HorizonA, HorizonB, HorizonC}
	for i, h := range p.Horizons {
		assert.Equal(t, names[i], h.Name)
	}
	assert.Equal(t, 30.0, p.RootZoneDepth)

	o := p.Horizons[0]
	assert.InDelta(t, 3.5*3.0, o.OrganicMatterPct, 1e-9)
	assert.InDelta(t, 1.0+0.2*(2.5/100), o.BulkDensityFactor, 1e-9)
	c := p.Horizons[3]
	assert.InDelta(t, 3.5*0.3, c.OrganicMatterPct, 1e-9)
	assert.InDelta(t, 1.0+0.2*0.8, c.BulkDensityFactor, 1e-9)
}

func TestBuildProfileHorizonsAreContiguous(t *testing.T) {
	for _, depth := range []float64{3, 5, 17.5, 30, 47.3, 60, 100, 300} {
		p, err := BuildProfile(loamSample(), depth)
		require.NoError(t, err)

		var total float64
		prevEnd := 0.0
		for _, h := range p.Horizons {
			assert.Equal(t, prevEnd, h.DepthStart, "gap before %s at depth %g", h.Name, depth)
			assert.Greater(t, h.Thickness, 0.0)
			total += h.Thickness
			prevEnd = h.DepthEnd
		}
		assert.InDelta(t, depth, total, 1e-9)
		assert.Equal(t, depth, prevEnd)
	}
}

func TestBuildProfileShallowDepthDropsDeepHorizons(t *testing.T) {
	p, err := BuildProfile(loamSample(), 20)
	require.NoError(t, err)

	require.Len(t, p.Horizons, 2)
	assert.Equal(t, HorizonA, p.Horizons[1].Name)
	assert.Equal(t, 20.0, p.Horizons[1].DepthEnd)
	assert.Equal(t, 20.0, p.RootZoneDepth)
}

func TestBuildProfileRootZoneAverageWithinBounds(t *testing.T) {
	p, err := BuildProfile(loamSample(), 100)
	require.NoError(t, err)

	minFC, maxFC := 1e9, -1e9
	for _, h := range p.Horizons {
		if h.DepthStart >= p.RootZoneDepth {
			continue
		}
		if h.Water.FieldCapacityPct < minFC {
			minFC = h.Water.FieldCapacityPct
		}
		if h.Water.FieldCapacityPct > maxFC {
			maxFC = h.Water.FieldCapacityPct
		}
	}

	avg := p.RootZoneAverages
	assert.GreaterOrEqual(t, avg.FieldCapacityPct, minFC)
	assert.LessOrEqual(t, avg.FieldCapacityPct, maxFC)
	assert.InDelta(t, avg.FieldCapacityPct-avg.WiltingPointPct, avg.PlantAvailableWaterPct, 1e-9)
}

func TestBuildProfileRestrictiveLayer(t *testing.T) {
	sandy, err := BuildProfile(NewSample(80, 5), 100)
	require.NoError(t, err)
	assert.Nil(t, sandy.RestrictiveLayer)

	clay, err := BuildProfile(NewSample(10, 60), 100)
	require.NoError(t, err)
	require.NotNil(t, clay.RestrictiveLayer)
	assert.Equal(t, HorizonO, clay.RestrictiveLayer.Horizon)
	assert.Equal(t, 0.0, clay.RestrictiveLayer.DepthStart)
	assert.Equal(t, "high", clay.RestrictiveLayer.Severity)
}

func TestFindRestrictiveLayerIsFirstMatch(t *testing.T) {
	horizons := []SoilHorizon{
		{Name: HorizonO, DepthStart: 0, DepthEnd: 5, Water: WaterCharacteristics{SaturatedConductivity: 10}},
		{Name: HorizonA, DepthStart: 5, DepthEnd: 25, Water: WaterCharacteristics{SaturatedConductivity: 1.5}},
		{Name: HorizonB, DepthStart: 25, DepthEnd: 60, Water: WaterCharacteristics{SaturatedConductivity: 0.1}},
	}

	layer := findRestrictiveLayer(horizons, 30)

	require.NotNil(t, layer)
	assert.Equal(t, HorizonA, layer.Horizon)
	assert.Equal(t, "moderate", layer.Severity)

	assert.Nil(t, findRestrictiveLayer(horizons[:1], 30))
	// B starts inside the root zone only when it is deeper than 25 cm
	assert.Equal(t, HorizonA, findRestrictiveLayer(horizons, 26).Horizon)
	assert.Nil(t, findRestrictiveLayer(horizons[2:], 25))
}

func TestBuildProfileRejectsDepth(t *testing.T) {
	for _, depth := range []float64{0, -10, 301} {
		_, err := BuildProfile(loamSample(), depth)
		require.Error(t, err)
		assert.True(t, errors.Is(err, validation.ErrInvalidInput))
		assert.Equal(t, "max_depth", validation.Fields(err)[0].Field)
	}
}
