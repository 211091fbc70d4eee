package irrigation

import (
	"context"
	"fmt"

	"flahasoil/internal/soil"
	"flahasoil/internal/validation"
)

const (
	// DefaultMAD is the management-allowed depletion used when neither the request nor the crop sets one.
	DefaultMAD = 0.5
	// DefaultSeasonDays is the season length used for economics when the crop has none.
	DefaultSeasonDays = 120

	maxET0 = 20.0
)

// Recommend computes an irrigation recommendation from soil water, Kc and ET0.
// Given the same inputs it always returns the same result.
func Recommend(in Inputs) (*Recommendation, error) {
	if err := validateInputs(in); err != nil {
		return nil, err
	}

	mad := in.MAD
	if mad == 0 {
		mad = DefaultMAD
	}
	seasonDays := in.SeasonDays
	if seasonDays == 0 {
		seasonDays = DefaultSeasonDays
	}
	current := in.CurrentMethod
	if current == "" {
		current = MethodSurface
	}

	etc := in.Kc * in.ET0
	netDepth := in.Soil.PlantAvailableWaterPct / 100 * in.RootDepthCM * 10 * mad

	var frequency *float64
	if etc > 0 {
		days := netDepth / etc
		frequency = &days
	}

	system, rationale := recommendSystem(in.Soil.SaturatedConductivity, in.SlopePct, in.FieldAreaHa, in.Soil.TextureClass)
	efficiency := Efficiencies[system]

	rec := &Recommendation{
		GrowthStage:             in.GrowthStage,
		Kc:                      in.Kc,
		ET0:                     in.ET0,
		ETc:                     etc,
		RootDepthCM:             in.RootDepthCM,
		IrrigationDepthMM:       netDepth,
		GrossIrrigationDepthMM:  netDepth / efficiency,
		IrrigationFrequencyDays: frequency,
		MaxApplicationRateMMHr:  in.Soil.SaturatedConductivity * slopeFactor(in.SlopePct),
		SystemRecommendation:    system,
		SystemEfficiency:        efficiency,
		SystemRationale:         rationale,
		Economics:               economics(etc, seasonDays, in.FieldAreaHa, in.Region, system, current),
	}
	return rec, nil
}

func validateInputs(in Inputs) error {
	var c validation.Collector
	c.Range("et0", in.ET0, 0, maxET0)
	c.Range("kc", in.Kc, 0, 2)
	c.Positive("field_area_ha", in.FieldAreaHa)
	c.Range("slope_pct", in.SlopePct, 0, 100)
	c.Positive("root_depth_cm", in.RootDepthCM)
	c.Range("plant_available_water_pct", in.Soil.PlantAvailableWaterPct, 0, 100)
	if in.MAD != 0 {
		c.Range("management_allowed_depletion", in.MAD, 0.05, 1)
	}
	if in.CurrentMethod != "" {
		if _, ok := Efficiencies[in.CurrentMethod]; !ok {
			c.OneOf("irrigation_method", string(in.CurrentMethod), methodNames()...)
		}
	}
	return c.Err()
}

func methodNames() []string {
	names := make([]string, len(Methods))
	for i, m := range Methods {
		names[i] = string(m)
	}
	return names
}

// economics scores the recommended system against the field's current method.
// Water volumes are seasonal: 1 mm over 1 ha is 10 m3.
func economics(etc float64, seasonDays int, areaHa float64, region string, system, current Method) Economics {
	name, costs := CostsFor(region)

	demand := etc * float64(seasonDays) * 10 * areaHa
	use := demand / Efficiencies[system]
	baseline := demand / Efficiencies[current]
	savings := (baseline - use) * costs.WaterPriceUSDPerM3

	e := Economics{
		Region:              name,
		InstallationCostUSD: costs.CapexUSDPerHa[system] * areaHa,
		SeasonalWaterUseM3:  use,
		BaselineWaterUseM3:  baseline,
		WaterPriceUSDPerM3:  costs.WaterPriceUSDPerM3,
		SeasonalSavingsUSD:  savings,
	}
	if e.InstallationCostUSD > 0 {
		e.ROIPct = savings / e.InstallationCostUSD * 100
	}
	if savings > 0 {
		payback := e.InstallationCostUSD / savings
		e.PaybackSeasons = &payback
	}
	return e
}

// Request is a full irrigation recommendation request
type Request struct {
	Soil              soil.WaterCharacteristics
	CropID            string
	ClimateZone       ClimateZone
	IrrigationMethod  Method
	GrowthStage       string
	BBCHCode          *int
	DaysAfterPlanting *int
	FieldAreaHa       float64
	SlopePct          float64
	ET0               float64
	WindSpeed         *float64
	RHMin             *float64
	RootDepthCM       *float64
	MAD               *float64
	Region            string
}

// CalculatorConfig holds calculator defaults
type CalculatorConfig struct {
	DefaultMAD float64
	Region     string
}

// Calculator resolves crop data and produces irrigation recommendations
type Calculator struct {
	resolver *KcResolver
	config   CalculatorConfig
}

// NewCalculator creates a new irrigation calculator
func NewCalculator(resolver *KcResolver, config CalculatorConfig) *Calculator {
	if config.DefaultMAD == 0 {
		config.DefaultMAD = DefaultMAD
	}
	return &Calculator{resolver: resolver, config: config}
}

// Calculate resolves Kc for the crop and computes the recommendation. A missing Kc
// schedule degrades to generic periods, reported through KcStatus and KcNote.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Recommendation, error) {
	var v validation.Collector
	if req.DaysAfterPlanting != nil && *req.DaysAfterPlanting < 0 {
		v.Add("days_after_planting", "OUT_OF_RANGE", "must be >= 0, got %d", *req.DaysAfterPlanting)
	}
	if req.IrrigationMethod != "" {
		if _, ok := Efficiencies[req.IrrigationMethod]; !ok {
			v.OneOf("irrigation_method", string(req.IrrigationMethod), methodNames()...)
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	crop, err := c.resolver.Crop(ctx, req.CropID)
	if err != nil {
		return nil, err
	}

	method := req.IrrigationMethod
	if method == "" {
		method = MethodSurface
	}
	kc, err := c.resolver.Resolve(ctx, KcQuery{
		CropID:            req.CropID,
		ClimateZone:       req.ClimateZone,
		IrrigationMethod:  method,
		Stage:             req.GrowthStage,
		BBCHCode:          req.BBCHCode,
		DaysAfterPlanting: req.DaysAfterPlanting,
		WindSpeed:         req.WindSpeed,
		RHMin:             req.RHMin,
	})
	if err != nil {
		return nil, err
	}

	rootDepth := crop.RootDepthMaxM * 100
	if req.RootDepthCM != nil {
		rootDepth = *req.RootDepthCM
	}
	mad := c.config.DefaultMAD
	if crop.ManagementAllowedDepletion > 0 {
		mad = crop.ManagementAllowedDepletion
	}
	if req.MAD != nil {
		mad = *req.MAD
	}
	region := c.config.Region
	if req.Region != "" {
		region = req.Region
	}
	seasonDays := crop.SeasonDays()
	if crop.Perennial {
		seasonDays = 365
	}

	rec, err := Recommend(Inputs{
		Soil:          req.Soil,
		Kc:            kc.Kc,
		ET0:           req.ET0,
		GrowthStage:   kc.Period.Stage,
		FieldAreaHa:   req.FieldAreaHa,
		SlopePct:      req.SlopePct,
		RootDepthCM:   rootDepth,
		MAD:           mad,
		SeasonDays:    seasonDays,
		CurrentMethod: method,
		Region:        region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute recommendation for %s: %w", crop.ID, err)
	}

	rec.CropID = crop.ID
	rec.KcStatus = kc.Status
	rec.KcClimateAdjusted = kc.ClimateAdjusted
	rec.KcNote = kc.Note
	return rec, nil
}
