package weather

import (
	"math"
	"time"
)

const (
	solarConstant     = 0.0820   // MJ m-2 min-1
	stefanBoltzmann   = 4.903e-9 // MJ K-4 m-2 day-1
	krsInterior       = 0.16     // Hargreaves radiation adjustment coefficient
	albedo            = 0.23
	seaLevelPressure  = 101.3 // kPa
	psychrometricCoef = 0.000665
	mjToMM            = 0.408
	// anemometerHeight is the height provider wind speeds are reported at (m).
	anemometerHeight = 10.0
)

// DailyWeather is the daily input to the ET0 estimators. Humidity and wind are optional.
type DailyWeather struct {
	Date        time.Time
	Latitude    float64
	TempMinC    float64
	TempMaxC    float64
	HumidityPct *float64
	WindSpeedMS *float64
}

// ExtraterrestrialRadiation returns Ra in MJ m-2 day-1 for a latitude and day of year (FAO-56 eq. 21).
func ExtraterrestrialRadiation(lat float64, dayOfYear int) float64 {
	phi := lat * math.Pi / 180
	j := float64(dayOfYear)
	dr := 1 + 0.033*math.Cos(2*math.Pi*j/365)
	delta := 0.409 * math.Sin(2*math.Pi*j/365-1.39)

	x := -math.Tan(phi) * math.Tan(delta)
	// polar day and night
	x = math.Max(-1, math.Min(1, x))
	ws := math.Acos(x)

	ra := 24 * 60 / math.Pi * solarConstant * dr *
		(ws*math.Sin(phi)*math.Sin(delta) + math.Cos(phi)*math.Cos(delta)*math.Sin(ws))
	return math.Max(ra, 0)
}

// Hargreaves returns ET0 in mm/day from the temperature range (FAO-56 eq. 52).
func Hargreaves(tmin, tmax, ra float64) float64 {
	tmean := (tmin + tmax) / 2
	et0 := 0.0023 * (tmean + 17.8) * math.Sqrt(math.Max(tmax-tmin, 0)) * ra * mjToMM
	return math.Max(et0, 0)
}

func saturationVapourPressure(t float64) float64 {
	return 0.6108 * math.Exp(17.27*t/(t+237.3))
}

// windAt2m converts a wind speed measured at height z to 2 m (FAO-56 eq. 47).
func windAt2m(uz, z float64) float64 {
	return uz * 4.87 / math.Log(67.8*z-5.42)
}

// PenmanMonteith returns ET0 in mm/day (FAO-56 eq. 6) with solar radiation estimated from
// the temperature range. Soil heat flux is taken as zero for daily steps.
func PenmanMonteith(tmin, tmax, humidityPct, windSpeedMS, ra float64) float64 {
	tmean := (tmin + tmax) / 2
	dT := math.Max(tmax-tmin, 0)

	rs := krsInterior * math.Sqrt(dT) * ra
	rso := 0.75 * ra
	rns := (1 - albedo) * rs

	es := (saturationVapourPressure(tmax) + saturationVapourPressure(tmin)) / 2
	ea := math.Max(0, math.Min(humidityPct, 100)) / 100 * es

	ratio := 1.0
	if rso > 0 {
		ratio = math.Min(rs/rso, 1)
	}
	tmaxK := math.Pow(tmax+273.16, 4)
	tminK := math.Pow(tmin+273.16, 4)
	rnl := stefanBoltzmann * (tmaxK + tminK) / 2 * (0.34 - 0.14*math.Sqrt(ea)) * (1.35*ratio - 0.35)
	rn := rns - rnl

	slope := 4098 * saturationVapourPressure(tmean) / math.Pow(tmean+237.3, 2)
	gamma := psychrometricCoef * seaLevelPressure
	u2 := math.Max(windAt2m(math.Max(windSpeedMS, 0), anemometerHeight), 0)

	num := mjToMM*slope*rn + gamma*900/(tmean+273)*u2*(es-ea)
	den := slope + gamma*(1+0.34*u2)
	return math.Max(num/den, 0)
}

// EstimateET0 picks Penman-Monteith when humidity and wind are known and Hargreaves otherwise.
func EstimateET0(d DailyWeather) (float64, ET0Method) {
	ra := ExtraterrestrialRadiation(d.Latitude, d.Date.YearDay())
	if d.HumidityPct != nil && d.WindSpeedMS != nil {
		return PenmanMonteith(d.TempMinC, d.TempMaxC, *d.HumidityPct, *d.WindSpeedMS, ra), ET0MethodPenmanMonteith
	}
	return Hargreaves(d.TempMinC, d.TempMaxC, ra), ET0MethodHargreaves
}
