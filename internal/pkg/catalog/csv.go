package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// CSVHeader is the column order read and written by ReadCSV and WriteCSV.
// An optional leading "id" column is also accepted on read.
var CSVHeader = []string{"name", "street", "city", "state", "zip_code", "country", "latitude", "longitude", "notes"}

// ReadCSV parses a catalog with a header row. Column order follows the
// header; unknown columns are ignored. name, latitude and longitude are
// required.
func ReadCSV(r io.Reader) ([]domain.Address, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Address{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cr.FieldsPerRecord = len(header)

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "latitude", "longitude"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: csv header missing %q column", domain.ErrInvalidArgument, required)
		}
	}

	out := []domain.Address{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			if i, ok := col[name]; ok {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		lat, err := strconv.ParseFloat(field("latitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: latitude %q", domain.ErrInvalidArgument, line, field("latitude"))
		}
		lon, err := strconv.ParseFloat(field("longitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: longitude %q", domain.ErrInvalidArgument, line, field("longitude"))
		}

		out = append(out, domain.Address{
			ID:        field("id"),
			Name:      field("name"),
			Street:    field("street"),
			City:      field("city"),
			State:     field("state"),
			ZipCode:   field("zip_code"),
			Country:   field("country"),
			Latitude:  lat,
			Longitude: lon,
			Notes:     field("notes"),
		})
	}
}

// WriteCSV writes addrs under CSVHeader.
func WriteCSV(w io.Writer, addrs []domain.Address) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, a := range addrs {
		err := cw.Write([]string{
			a.Name, a.Street, a.City, a.State, a.ZipCode, a.Country,
			strconv.FormatFloat(a.Latitude, 'f', -1, 64),
			strconv.FormatFloat(a.Longitude, 'f', -1, 64),
			a.Notes,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
