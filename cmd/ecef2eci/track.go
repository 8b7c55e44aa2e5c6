package main

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/ecef2eci/internal/convert"
	"github.com/star/ecef2eci/internal/transform"
)

func newTrackCmd(logger *slog.Logger) *cobra.Command {
	var (
		startStr string
		step     time.Duration
		count    int
		ecef     []float64
		geodetic []float64
		inverse  bool
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Sample the ECI position of a fixed ECEF point over time",
		Long: `Prints one line per sample: RFC3339 time followed by X, Y and Z in km.

Examples:
  ecef2eci track --start 2020-03-15T12:00:00Z --step 1h --count 3 --ecef 6378.137,0,0
  ecef2eci track --geodetic 39.7392,-104.9903,1.609 --count 24 --step 1h
  ecef2eci track --inverse --ecef=6348.99,-609.05,0 --start 2020-03-15T12:00:00Z --count 1`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now().UTC()
			if startStr != "" {
				var err error
				start, err = time.Parse(time.RFC3339Nano, startStr)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
			}

			pos, err := trackPosition(ecef, geodetic)
			if err != nil {
				return err
			}

			conv := convert.NewConverter(convert.Config{Workers: runtime.NumCPU()}, logger)
			samples, err := conv.Track(cmd.Context(), convert.TrackRequest{
				Start:   start,
				Step:    step,
				Count:   count,
				ECEF:    pos,
				Inverse: inverse,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range samples {
				fmt.Fprintln(out, s.Time.Format(time.RFC3339Nano), s.Position.X, s.Position.Y, s.Position.Z)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "first sample time, RFC3339 (default now)")
	cmd.Flags().DurationVar(&step, "step", time.Minute, "interval between samples")
	cmd.Flags().IntVar(&count, "count", 10, "number of samples")
	cmd.Flags().Float64SliceVar(&ecef, "ecef", nil, "position x,y,z in km")
	cmd.Flags().Float64SliceVar(&geodetic, "geodetic", nil, "position lat,lon in degrees and alt in km")
	cmd.Flags().BoolVar(&inverse, "inverse", false, "treat --ecef as ECI and print ECEF samples")
	cmd.MarkFlagsMutuallyExclusive("ecef", "geodetic")
	cmd.MarkFlagsOneRequired("ecef", "geodetic")

	return cmd
}

func trackPosition(ecef, geodetic []float64) (transform.Vector3, error) {
	switch {
	case ecef != nil:
		if len(ecef) != 3 {
			return transform.Vector3{}, errors.New("--ecef needs exactly three values: x,y,z")
		}
		return transform.Vector3{X: ecef[0], Y: ecef[1], Z: ecef[2]}, nil
	case geodetic != nil:
		if len(geodetic) != 3 {
			return transform.Vector3{}, errors.New("--geodetic needs exactly three values: lat,lon,alt")
		}
		return transform.GeodeticToECEF(geodetic[0], geodetic[1], geodetic[2]), nil
	}
	return transform.Vector3{}, errors.New("one of --ecef or --geodetic is required")
}
