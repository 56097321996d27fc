package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/waypoint-labs/waypoint/internal/adapters/memory"
	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/pkg/catalog"
)

// originFlags holds --lat/--lon.
type originFlags struct {
	Lat, Lon float64
}

func (o *originFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.Lat, "lat", 0, "Origin latitude in degrees.")
	cmd.Flags().Float64Var(&o.Lon, "lon", 0, "Origin longitude in degrees.")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func (o *originFlags) point() domain.GeoPoint {
	return domain.GeoPoint{Lat: o.Lat, Lon: o.Lon}
}

func newNearestCommand(deps Dependencies, flags *globalFlags) *cobra.Command {
	var origin originFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "List the catalog addresses closest to a point.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, routes, err := flags.services(deps)
			if err != nil {
				return err
			}
			ranked, err := routes.Nearest(cmd.Context(), origin.point(), limit)
			if err != nil {
				return err
			}
			return writeRanked(cmd.OutOrStdout(), flags.Format, ranked)
		},
	}
	origin.bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of addresses to return.")
	return cmd
}

func newOptimizeCommand(deps Dependencies, flags *globalFlags) *cobra.Command {
	var origin originFlags
	var ids []string

	cmd := &cobra.Command{
		Use:   "optimize [address-id...]",
		Short: "Order the given addresses into a short route from a start point.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids = append(ids, args...)
			if len(ids) == 0 {
				return errors.New("no address ids given: pass them as arguments or with --ids")
			}
			_, routes, err := flags.services(deps)
			if err != nil {
				return err
			}
			route, err := routes.Optimize(cmd.Context(), origin.point(), ids)
			if err != nil {
				return err
			}
			return writeRoute(cmd.OutOrStdout(), flags.Format, route)
		},
	}
	origin.bind(cmd)
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Comma-separated address ids.")
	return cmd
}

func newPlanCommand(deps Dependencies, flags *globalFlags) *cobra.Command {
	var origin originFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Pick the nearest addresses and sequence them into a route.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, routes, err := flags.services(deps)
			if err != nil {
				return err
			}
			route, err := routes.Plan(cmd.Context(), origin.point(), limit)
			if err != nil {
				return err
			}
			return writeRoute(cmd.OutOrStdout(), flags.Format, route)
		},
	}
	origin.bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of stops to plan.")
	return cmd
}

// seedFlags controls synthetic catalog generation.
type seedFlags struct {
	Count int
	Seed  uint64
	Force bool
}

func (s *seedFlags) bind(fs *pflag.FlagSet) {
	fs.IntVar(&s.Count, "count", 1000, "Number of addresses to generate.")
	fs.Uint64Var(&s.Seed, "seed", 0, "Random seed, 0 for time-based.")
	fs.BoolVar(&s.Force, "force", false, "Overwrite an existing catalog file.")
}

func newSeedCommand(_ Dependencies, flags *globalFlags) *cobra.Command {
	var seed seedFlags

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic catalog around the sample cities to the catalog file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed.Count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", seed.Count)
			}
			if !seed.Force {
				if _, err := os.Stat(flags.Catalog); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", flags.Catalog)
				}
			}
			s := seed.Seed
			if s == 0 {
				s = uint64(time.Now().UnixNano())
			}
			addrs := catalog.Generate(seed.Count, s)
			if err := memory.SaveFile(flags.Catalog, addrs); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %d addresses to %s\n", len(addrs), flags.Catalog)
			return err
		},
	}
	seed.bind(cmd.Flags())
	return cmd
}

func newImportCommand(deps Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Add or replace catalog addresses from a CSV file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			addrs, err := catalog.ReadCSV(f)
			if err != nil {
				return err
			}
			addresses, _, err := flags.services(deps)
			if err != nil {
				return err
			}
			if err := addresses.Import(cmd.Context(), addrs); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d addresses into %s\n", len(addrs), flags.Catalog)
			return err
		},
	}
}
