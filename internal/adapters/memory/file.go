package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// catalogFile is the on-disk catalog layout shared by YAML and JSON files:
//
//	addresses:
//	  - name: Burnaby Depot
//	    latitude: 49.25
//	    longitude: -122.98
type catalogFile struct {
	Addresses []addressRecord `yaml:"addresses" json:"addresses"`
}

type addressRecord struct {
	ID        string    `yaml:"id,omitempty" json:"id,omitempty"`
	Name      string    `yaml:"name" json:"name"`
	Street    string    `yaml:"street,omitempty" json:"street,omitempty"`
	City      string    `yaml:"city,omitempty" json:"city,omitempty"`
	State     string    `yaml:"state,omitempty" json:"state,omitempty"`
	ZipCode   string    `yaml:"zip_code,omitempty" json:"zip_code,omitempty"`
	Country   string    `yaml:"country,omitempty" json:"country,omitempty"`
	Latitude  float64   `yaml:"latitude" json:"latitude"`
	Longitude float64   `yaml:"longitude" json:"longitude"`
	Notes     string    `yaml:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

func fromRecord(r addressRecord) domain.Address {
	return domain.Address{
		ID: r.ID, Name: r.Name, Street: r.Street, City: r.City, State: r.State,
		ZipCode: r.ZipCode, Country: r.Country, Latitude: r.Latitude, Longitude: r.Longitude,
		Notes: r.Notes, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toRecord(a domain.Address) addressRecord {
	return addressRecord{
		ID: a.ID, Name: a.Name, Street: a.Street, City: a.City, State: a.State,
		ZipCode: a.ZipCode, Country: a.Country, Latitude: a.Latitude, Longitude: a.Longitude,
		Notes: a.Notes, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Decode parses a catalog document. JSON is used when asJSON is set,
// YAML otherwise. Every entry is validated.
func Decode(data []byte, asJSON bool) ([]domain.Address, error) {
	var f catalogFile
	if asJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	}

	addrs := make([]domain.Address, 0, len(f.Addresses))
	for i, r := range f.Addresses {
		a := fromRecord(r)
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i+1, err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

// Encode renders addrs as a catalog document.
func Encode(addrs []domain.Address, asJSON bool) ([]byte, error) {
	f := catalogFile{Addresses: make([]addressRecord, len(addrs))}
	for i, a := range addrs {
		f.Addresses[i] = toRecord(a)
	}
	if asJSON {
		return json.MarshalIndent(f, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadFile reads a YAML (.yaml/.yml) or JSON (.json) catalog.
func LoadFile(path string) ([]domain.Address, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Decode(data, isJSON(path))
}

// SaveFile writes addrs to path atomically, picking the format from the extension.
func SaveFile(path string, addrs []domain.Address) error {
	data, err := Encode(addrs, isJSON(path))
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return os.Rename(tmp, path)
}

// OpenFile loads path into a repository that writes every change back to it.
// A missing file starts an empty catalog. Entries loaded without an ID are
// given one and the file is rewritten so the IDs survive restarts.
func OpenFile(path string) (*AddressRepo, error) {
	addrs, err := LoadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	save := func(all []domain.Address) error {
		return SaveFile(path, all)
	}
	r, assigned := newAddressRepo(addrs, WithPersistence(save))
	if assigned > 0 {
		if err := save(r.snapshot()); err != nil {
			return nil, fmt.Errorf("persist assigned ids: %w", err)
		}
	}
	return r, nil
}
