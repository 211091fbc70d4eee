package irrigation

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"flahasoil/internal/validation"
)

//go:embed catalog.yaml
var catalogYAML []byte

// KcRepository defines the interface for crop reference data access
type KcRepository interface {
	GetCrop(ctx context.Context, cropID string) (*Crop, error)
	ListCrops(ctx context.Context) ([]Crop, error)
	// GetKcSchedule returns validation.ErrNotFound when no schedule matches the combination.
	GetKcSchedule(ctx context.Context, cropID string, zone ClimateZone, method Method) (*KcSchedule, error)
	// ListKcPeriods returns up to limit generic periods of the crop ordered by start day.
	ListKcPeriods(ctx context.Context, cropID string, limit int) ([]KcPeriod, error)
}

type catalogFile struct {
	Crops     []Crop       `yaml:"crops"`
	Schedules []KcSchedule `yaml:"schedules"`
}

// CatalogRepository serves the seeded crop catalogue from memory
type CatalogRepository struct {
	crops     []Crop
	byID      map[string]int
	schedules map[string]KcSchedule
}

// NewCatalogRepository loads the embedded crop catalogue.
func NewCatalogRepository() (*CatalogRepository, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog builds a repository from a YAML catalogue document.
func ParseCatalog(data []byte) (*CatalogRepository, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse crop catalogue: %w", err)
	}

	repo := &CatalogRepository{
		crops:     file.Crops,
		byID:      make(map[string]int, len(file.Crops)),
		schedules: make(map[string]KcSchedule, len(file.Schedules)),
	}
	for i, c := range file.Crops {
		if _, dup := repo.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate crop %q in catalogue", c.ID)
		}
		repo.byID[c.ID] = i
	}
	for _, s := range file.Schedules {
		if _, ok := repo.byID[s.CropID]; !ok {
			return nil, fmt.Errorf("schedule references unknown crop %q", s.CropID)
		}
		if err := checkPeriods(s.Periods); err != nil {
			return nil, fmt.Errorf("schedule %s/%s/%s: %w", s.CropID, s.ClimateZone, s.IrrigationMethod, err)
		}
		repo.schedules[scheduleKey(s.CropID, s.ClimateZone, s.IrrigationMethod)] = s
	}
	return repo, nil
}

func (r *CatalogRepository) GetCrop(ctx context.Context, cropID string) (*Crop, error) {
	i, ok := r.byID[cropID]
	if !ok {
		return nil, fmt.Errorf("crop %q: %w", cropID, validation.ErrNotFound)
	}
	crop := r.crops[i]
	return &crop, nil
}

func (r *CatalogRepository) ListCrops(ctx context.Context) ([]Crop, error) {
	out := make([]Crop, len(r.crops))
	copy(out, r.crops)
	return out, nil
}

func (r *CatalogRepository) GetKcSchedule(ctx context.Context, cropID string, zone ClimateZone, method Method) (*KcSchedule, error) {
	s, ok := r.schedules[scheduleKey(cropID, zone, method)]
	if !ok {
		return nil, fmt.Errorf("kc schedule %s/%s/%s: %w", cropID, zone, method, validation.ErrNotFound)
	}
	return &s, nil
}

func (r *CatalogRepository) ListKcPeriods(ctx context.Context, cropID string, limit int) ([]KcPeriod, error) {
	crop, err := r.GetCrop(ctx, cropID)
	if err != nil {
		return nil, err
	}
	periods := GenericPeriods(*crop)
	if limit > 0 && len(periods) > limit {
		periods = periods[:limit]
	}
	return periods, nil
}

func scheduleKey(cropID string, zone ClimateZone, method Method) string {
	return cropID + "|" + string(zone) + "|" + string(method)
}

// GenericPeriods derives the four FAO-56 periods of a crop from its stage lengths and
// its initial, mid-season and end-of-season Kc values.
func GenericPeriods(c Crop) []KcPeriod {
	periods := make([]KcPeriod, 0, len(c.Stages))
	start := 0
	for _, s := range c.Stages {
		p := KcPeriod{
			Stage:           s.Name,
			PeriodStartDays: start,
			PeriodEndDays:   start + s.Days,
		}
		switch s.Name {
		case StageInitial:
			p.KcValue, p.KcMin, p.KcMax = c.KcIni, c.KcIni, c.KcIni
		case StageDevelopment:
			p.KcValue = (c.KcIni + c.KcMid) / 2
			p.KcMin, p.KcMax = minMax(c.KcIni, c.KcMid)
		case StageMid:
			p.KcValue, p.KcMin, p.KcMax = c.KcMid, c.KcMid, c.KcMid
		default:
			p.KcValue = (c.KcMid + c.KcEnd) / 2
			p.KcMin, p.KcMax = minMax(c.KcMid, c.KcEnd)
		}
		periods = append(periods, p)
		start = p.PeriodEndDays
	}
	return periods
}

func minMax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}

// checkPeriods enforces ordered, non-overlapping periods.
func checkPeriods(periods []KcPeriod) error {
	if len(periods) == 0 {
		return fmt.Errorf("no periods")
	}
	if !sort.SliceIsSorted(periods, func(i, j int) bool {
		return periods[i].PeriodStartDays < periods[j].PeriodStartDays
	}) {
		return fmt.Errorf("periods are not ordered by start day")
	}
	for i, p := range periods {
		if p.PeriodEndDays <= p.PeriodStartDays {
			return fmt.Errorf("period %d is empty", i)
		}
		if i > 0 && p.PeriodStartDays < periods[i-1].PeriodEndDays {
			return fmt.Errorf("period %d overlaps period %d", i, i-1)
		}
	}
	return nil
}
