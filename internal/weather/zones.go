package weather

import (
	"time"

	"flahasoil/internal/irrigation"
	"flahasoil/pkg/geospatial"
)

var (
	// gccBox is checked before mediterraneanBox; the two overlap around the Levant.
	gccBox           = geospatial.Box(12, 32, 34, 60)
	mediterraneanBox = geospatial.Box(30, 46, -10, 36)
)

// ClimateZoneFor maps a coordinate to a coarse climate zone: the Gulf box, the
// Mediterranean box, or temperate for everything else.
func ClimateZoneFor(lat, lon float64) irrigation.ClimateZone {
	switch {
	case geospatial.Contains(gccBox, lat, lon):
		return irrigation.ClimateGCCArid
	case geospatial.Contains(mediterraneanBox, lat, lon):
		return irrigation.ClimateMENAMediterranean
	default:
		return irrigation.ClimateTemperate
	}
}

// climatology holds monthly normals for one zone, January first.
type climatology struct {
	et0          [12]float64
	meanTempC    [12]float64
	diurnalRange float64
	humidityPct  float64
	windSpeedMS  float64
}

var climatologies = map[irrigation.ClimateZone]climatology{
	irrigation.ClimateGCCArid: {
		et0:          [12]float64{3.5, 4.3, 5.6, 7.2, 8.8, 9.8, 9.9, 9.3, 8.0, 6.3, 4.5, 3.5},
		meanTempC:    [12]float64{18, 20, 23, 28, 32, 34, 36, 35, 33, 29, 24, 20},
		diurnalRange: 12,
		humidityPct:  45,
		windSpeedMS:  3.5,
	},
	irrigation.ClimateMENAMediterranean: {
		et0:          [12]float64{1.5, 2.0, 3.0, 4.2, 5.4, 6.5, 7.0, 6.4, 4.8, 3.1, 1.9, 1.4},
		meanTempC:    [12]float64{10, 11, 13, 16, 20, 24, 27, 27, 24, 19, 14, 11},
		diurnalRange: 9,
		humidityPct:  60,
		windSpeedMS:  3,
	},
	irrigation.ClimateTemperate: {
		et0:          [12]float64{0.6, 1.0, 1.8, 2.8, 3.7, 4.3, 4.5, 3.9, 2.7, 1.6, 0.8, 0.5},
		meanTempC:    [12]float64{2, 3, 6, 9, 13, 16, 18, 18, 15, 11, 6, 3},
		diurnalRange: 8,
		humidityPct:  75,
		windSpeedMS:  2.5,
	},
}

// monthIndex returns the climatological month for a date, shifted by six months
// south of the equator.
func monthIndex(lat float64, at time.Time) int {
	m := int(at.Month()) - 1
	if lat < 0 {
		m = (m + 6) % 12
	}
	return m
}

// ClimatologicalET0 returns the regional monthly normal ET0 in mm/day.
func ClimatologicalET0(lat, lon float64, at time.Time) (float64, irrigation.ClimateZone) {
	zone := ClimateZoneFor(lat, lon)
	return climatologies[zone].et0[monthIndex(lat, at)], zone
}
