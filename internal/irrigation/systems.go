package irrigation

import "strings"

// Efficiencies are the application efficiencies of each irrigation method.
var Efficiencies = map[Method]float64{
	MethodDrip:           0.90,
	MethodSubsurfaceDrip: 0.95,
	MethodMicroSprinkler: 0.85,
	MethodSprinkler:      0.75,
	MethodCenterPivot:    0.85,
	MethodSurface:        0.60,
}

// Methods lists the supported irrigation methods.
var Methods = []Method{
	MethodDrip, MethodSubsurfaceDrip, MethodMicroSprinkler,
	MethodSprinkler, MethodCenterPivot, MethodSurface,
}

// RegionCosts holds installation cost per hectare and the water price of a region
type RegionCosts struct {
	WaterPriceUSDPerM3 float64
	CapexUSDPerHa      map[Method]float64
}

// Regions is the regional cost table. Unknown regions use "default".
var Regions = map[string]RegionCosts{
	"gcc": {
		WaterPriceUSDPerM3: 1.50,
		CapexUSDPerHa: map[Method]float64{
			MethodDrip: 3500, MethodSubsurfaceDrip: 4500, MethodMicroSprinkler: 3000,
			MethodSprinkler: 2200, MethodCenterPivot: 2800, MethodSurface: 600,
		},
	},
	"mena": {
		WaterPriceUSDPerM3: 0.60,
		CapexUSDPerHa: map[Method]float64{
			MethodDrip: 2800, MethodSubsurfaceDrip: 3600, MethodMicroSprinkler: 2400,
			MethodSprinkler: 1800, MethodCenterPivot: 2300, MethodSurface: 450,
		},
	},
	"default": {
		WaterPriceUSDPerM3: 0.30,
		CapexUSDPerHa: map[Method]float64{
			MethodDrip: 2500, MethodSubsurfaceDrip: 3200, MethodMicroSprinkler: 2100,
			MethodSprinkler: 1500, MethodCenterPivot: 2000, MethodSurface: 400,
		},
	},
}

// CostsFor returns the cost table of a region, falling back to "default".
func CostsFor(region string) (string, RegionCosts) {
	key := strings.ToLower(region)
	if c, ok := Regions[key]; ok {
		return key, c
	}
	return "default", Regions["default"]
}

// slopeFactor reduces the allowed application rate on sloping ground.
func slopeFactor(slopePct float64) float64 {
	switch {
	case slopePct > 8:
		return 0.5
	case slopePct > 5:
		return 0.75
	default:
		return 1.0
	}
}

// recommendSystem picks an irrigation method from infiltration, slope and field size.
func recommendSystem(ks, slopePct, areaHa float64, texture string) (Method, string) {
	switch {
	case slopePct > 8:
		return MethodDrip, "steep slope: pressure-compensated drip avoids runoff and erosion"
	case ks < 5:
		return MethodSubsurfaceDrip, "low infiltration (" + texture + "): subsurface drip avoids surface ponding and crusting"
	case areaHa >= 50 && slopePct <= 5:
		return MethodCenterPivot, "large, gentle field: center pivot gives uniform coverage at low labour cost"
	case ks > 30:
		return MethodDrip, "high infiltration (" + texture + "): drip keeps water in the root zone"
	case areaHa >= 10:
		return MethodSprinkler, "medium infiltration on a medium-size field: sprinkler is the lowest-cost uniform option"
	default:
		return MethodDrip, "small field: drip gives the highest water productivity"
	}
}
