package main

import (
	"github.com/spf13/cobra"

	"flahasoil/internal/irrigation"
	"flahasoil/internal/salt"
	"flahasoil/internal/soil"
)

// =============================================================================
// SOIL COMMANDS
// =============================================================================

type sampleFlags struct {
	sand    float64
	clay    float64
	om      float64
	density float64
}

func (f *sampleFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.sand, "sand", 0, "Sand content (percent)")
	cmd.Flags().Float64Var(&f.clay, "clay", 0, "Clay content (percent)")
	cmd.Flags().Float64Var(&f.om, "om", soil.DefaultOrganicMatter, "Organic matter (percent)")
	cmd.Flags().Float64Var(&f.density, "density", soil.DefaultBulkDensityFactor, "Bulk density factor")
	_ = cmd.MarkFlagRequired("sand")
	_ = cmd.MarkFlagRequired("clay")
}

func (f *sampleFlags) sample() (soil.SoilSample, error) {
	s := soil.SoilSample{
		SandPct:           f.sand,
		ClayPct:           f.clay,
		OrganicMatterPct:  f.om,
		BulkDensityFactor: f.density,
	}
	return s, s.Validate()
}

func newWaterCmd(opts *rootOptions) *cobra.Command {
	flags := &sampleFlags{}
	cmd := &cobra.Command{
		Use:   "water",
		Short: "Compute water characteristics of a sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.sample()
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, soil.Compute(s))
		},
	}
	flags.register(cmd)
	return cmd
}

func newCurveCmd(opts *rootOptions) *cobra.Command {
	flags := &sampleFlags{}
	var tensions []float64
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Generate a moisture-tension curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.sample()
			if err != nil {
				return err
			}
			points, err := soil.NormalizeTensionPoints(tensions)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, soil.GenerateCurve(s, points))
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64SliceVar(&tensions, "tensions", nil, "Tension points in kPa (default set when omitted)")
	return cmd
}

func newProfileCmd(opts *rootOptions) *cobra.Command {
	flags := &sampleFlags{}
	var depth float64
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Build a horizon profile for a sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.sample()
			if err != nil {
				return err
			}
			profile, err := soil.BuildProfile(s, depth)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, profile)
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&depth, "depth", soil.DefaultProfileDepth, "Profile depth (cm)")
	return cmd
}

// =============================================================================
// SALINITY AND CROP COMMANDS
// =============================================================================

func newLeachingCmd(opts *rootOptions) *cobra.Command {
	in := salt.LeachingInput{}
	cmd := &cobra.Command{
		Use:   "leaching",
		Short: "Compute the leaching requirement for saline soil",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := salt.CalculateLeachingRequirement(in)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, result)
		},
	}
	cmd.Flags().Float64Var(&in.SoilEC, "soil-ec", 0, "Soil salinity (dS/m)")
	cmd.Flags().Float64Var(&in.WaterEC, "water-ec", 0, "Irrigation water salinity (dS/m)")
	cmd.Flags().Float64Var(&in.CropThresholdEC, "threshold", 0, "Crop salinity threshold (dS/m)")
	cmd.Flags().StringVar(&in.ClimateZone, "zone", salt.ZoneGCCArid, "Climate zone")
	cmd.Flags().StringVar(&in.Season, "season", salt.SeasonSummer, "Season")
	_ = cmd.MarkFlagRequired("soil-ec")
	_ = cmd.MarkFlagRequired("water-ec")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}

func newCropsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "crops",
		Short: "List the crops in the built-in catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := irrigation.NewCatalogRepository()
			if err != nil {
				return err
			}
			crops, err := catalog.ListCrops(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, crops)
		},
	}
}
