// Package cli implements the waypoint command line: ranking, sequencing and
// seeding against a file-backed address catalog.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/waypoint-labs/waypoint/internal/adapters/memory"
	"github.com/waypoint-labs/waypoint/internal/core/ports"
	"github.com/waypoint-labs/waypoint/internal/core/routing"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
)

// Dependencies wires runtime services.
type Dependencies struct {
	Version string
	// OpenCatalog opens the catalog at path; defaults to memory.OpenFile.
	OpenCatalog func(path string) (ports.AddressRepository, error)
}

// globalFlags are shared by every command.
type globalFlags struct {
	Catalog         string
	Format          string
	AverageSpeedKmh float64
	MaxStops        int
	MaxPasses       int
	TimeBudget      time.Duration
}

func (g *globalFlags) bind(fs *pflag.FlagSet) {
	defaults := usecases.DefaultRouteOptions()
	fs.StringVarP(&g.Catalog, "catalog", "c", "addresses.yaml", "Catalog file (.yaml, .yml or .json).")
	fs.StringVarP(&g.Format, "format", "f", formatTable, "Output format: table or json.")
	fs.Float64Var(&g.AverageSpeedKmh, "speed", routing.DefaultAverageSpeedKmh, "Average travel speed in km/h for leg durations.")
	fs.IntVar(&g.MaxStops, "max-stops", defaults.MaxStops, "Largest stop set accepted per route.")
	fs.IntVar(&g.MaxPasses, "max-passes", 0, "2-opt pass cap, 0 for n squared.")
	fs.DurationVar(&g.TimeBudget, "time-budget", defaults.TimeBudget, "2-opt wall-clock budget, 0 for none.")
}

func (g *globalFlags) routeOptions() usecases.RouteOptions {
	opts := usecases.DefaultRouteOptions()
	opts.AverageSpeedKmh = g.AverageSpeedKmh
	opts.MaxStops = g.MaxStops
	opts.MaxPasses = g.MaxPasses
	opts.TimeBudget = g.TimeBudget
	return opts
}

// services opens the catalog and builds the address and route services.
func (g *globalFlags) services(deps Dependencies) (*usecases.AddressService, *usecases.RouteService, error) {
	if _, err := parseOutputFormat(g.Format); err != nil {
		return nil, nil, err
	}
	open := deps.OpenCatalog
	if open == nil {
		open = func(path string) (ports.AddressRepository, error) { return memory.OpenFile(path) }
	}
	repo, err := open(g.Catalog)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog %s: %w", g.Catalog, err)
	}
	addresses := usecases.NewAddressService(repo, nil, nil)
	return addresses, usecases.NewRouteService(addresses, nil, g.routeOptions()), nil
}

// NewRootCommand builds the complete command tree.
func NewRootCommand(deps Dependencies) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "waypoint",
		Short:         "Rank addresses by distance and sequence multi-stop routes.",
		Version:       resolvedVersion(deps.Version),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	flags.bind(root.PersistentFlags())

	root.AddCommand(newNearestCommand(deps, flags))
	root.AddCommand(newOptimizeCommand(deps, flags))
	root.AddCommand(newPlanCommand(deps, flags))
	root.AddCommand(newSeedCommand(deps, flags))
	root.AddCommand(newImportCommand(deps, flags))
	return root
}

func resolvedVersion(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
