package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func parseOutputFormat(v string) (string, error) {
	switch v {
	case formatTable, formatJSON:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use table or json", v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRanked(w io.Writer, format string, ranked []domain.RankedAddress) error {
	if format == formatJSON {
		return writeJSON(w, ranked)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tCITY\tDISTANCE")
	for i, r := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Address.ID, r.Address.Name, r.Address.City, km(r.Distance))
	}
	return tw.Flush()
}

func writeRoute(w io.Writer, format string, route *domain.Route) error {
	if format == formatJSON {
		return writeJSON(w, route)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STOP\tID\tNAME\tLEG\tETA")
	var elapsed float64
	for _, leg := range route.Legs {
		elapsed += leg.Duration
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", leg.Order+1, leg.Address.ID, leg.Address.Name, km(leg.Distance), minutes(elapsed))
	}
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\t%s\n", km(route.TotalDistance), minutes(route.TotalDuration))
	if err := tw.Flush(); err != nil {
		return err
	}
	if route.BudgetExhausted {
		_, err := fmt.Fprintln(w, "note: improvement stopped early, route may not be locally optimal")
		return err
	}
	return nil
}

func km(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}

func minutes(seconds float64) string {
	return fmt.Sprintf("%.1f min", seconds/60)
}
