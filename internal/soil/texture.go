package soil

// USDA-style texture classes produced by ClassifyTexture
const (
	TextureSandyClay     = "Sandy Clay"
	TextureSiltyClay     = "Silty Clay"
	TextureClay          = "Clay"
	TextureSandyClayLoam = "Sandy Clay Loam"
	TextureSiltyClayLoam = "Silty Clay Loam"
	TextureClayLoam      = "Clay Loam"
	TextureLoam          = "Loam"
	TextureSilt          = "Silt"
	TextureSiltLoam      = "Silt Loam"
	TextureSand          = "Sand"
	TextureLoamySand     = "Loamy Sand"
	TextureSandyLoam     = "Sandy Loam"
)

// TextureClasses lists every class ClassifyTexture can return.
var TextureClasses = []string{
	TextureSandyClay, TextureSiltyClay, TextureClay,
	TextureSandyClayLoam, TextureSiltyClayLoam, TextureClayLoam,
	TextureLoam, TextureSilt, TextureSiltLoam,
	TextureSand, TextureLoamySand, TextureSandyLoam,
}

// ClassifyTexture maps sand and clay percentages to a texture class.
// Rules are evaluated in order and the first match wins.
func ClassifyTexture(sandPct, clayPct float64) string {
	silt := 100 - sandPct - clayPct

	switch {
	case clayPct >= 40:
		if sandPct > 45 {
			return TextureSandyClay
		}
		if silt > 40 {
			return TextureSiltyClay
		}
		return TextureClay
	case clayPct >= 27:
		if sandPct > 45 {
			return TextureSandyClayLoam
		}
		if silt > 40 {
			return TextureSiltyClayLoam
		}
		return TextureClayLoam
	case clayPct >= 20:
		return TextureLoam
	case silt >= 80:
		return TextureSilt
	case silt >= 50:
		return TextureSiltLoam
	case sandPct >= 85:
		return TextureSand
	case sandPct >= 70:
		return TextureLoamySand
	default:
		return TextureSandyLoam
	}
}
