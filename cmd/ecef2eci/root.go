package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/star/ecef2eci/internal/transform"
)

const usageLine = "ecef2eci year month day hour minute second ecef_x_km ecef_y_km ecef_z_km"

var errUsage = errors.New("usage error")

// conversionArgs are the nine positional inputs of the root command.
type conversionArgs struct {
	ts   transform.CalendarTimestamp
	ecef transform.Vector3
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   usageLine,
		Short: "Convert an ECEF position to ECI",
		Long: `Converts an Earth-fixed (ECEF) position in km to the Earth-centered
inertial frame (ECI) at the given UTC time, treated as UT1.

Prints the ECI X, Y and Z components in km, one per line.

Example:
  ecef2eci 2020 3 15 12 0 0.0 6378.137 0 0`,
		// Flag parsing is off so negative coordinates are taken as values.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceErrors:      true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
				return cmd.Help()
			}

			in, err := parseConversionArgs(args)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Usage: %s\n", usageLine)
				logger.Debug("rejected arguments", "error", err)
				return err
			}

			eci := transform.ECEFToECI(in.ts, in.ecef)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, eci.X)
			fmt.Fprintln(out, eci.Y)
			fmt.Fprintln(out, eci.Z)
			return nil
		},
	}

	cmd.AddCommand(newTrackCmd(logger), newServeCmd(logger))
	return cmd
}

// parseConversionArgs parses year, month, day, hour and minute as integers and
// second and the ECEF components as reals. Nothing reaches the core unless all
// nine parse.
func parseConversionArgs(args []string) (conversionArgs, error) {
	var in conversionArgs
	if len(args) != 9 {
		return in, fmt.Errorf("%w: expected 9 arguments, got %d", errUsage, len(args))
	}

	ints := []*int{&in.ts.Year, &in.ts.Month, &in.ts.Day, &in.ts.Hour, &in.ts.Minute}
	for i, dst := range ints {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return in, fmt.Errorf("%w: argument %d (%q) is not an integer", errUsage, i+1, args[i])
		}
		*dst = n
	}

	reals := []*float64{&in.ts.Second, &in.ecef.X, &in.ecef.Y, &in.ecef.Z}
	for i, dst := range reals {
		idx := len(ints) + i
		f, err := strconv.ParseFloat(args[idx], 64)
		if err != nil {
			return in, fmt.Errorf("%w: argument %d (%q) is not a number", errUsage, idx+1, args[idx])
		}
		*dst = f
	}

	return in, nil
}
