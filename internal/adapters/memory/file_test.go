package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

const yamlCatalog = `
addresses:
  - id: a1
    name: Burnaby Depot
    street: 4567 Canada Way
    city: Burnaby
    state: BC
    country: CAN
    latitude: 49.2488
    longitude: -122.9805
  - name: Olympia Office
    latitude: 47.0379
    longitude: -122.9007
    notes: Priority customer
`

func TestDecode_YAML(t *testing.T) {
	addrs, err := Decode([]byte(yamlCatalog), false)
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	require.Equal(t, "a1", addrs[0].ID)
	require.Equal(t, "Burnaby", addrs[0].City)
	require.Equal(t, "Priority customer", addrs[1].Notes)
}

func TestDecode_JSON(t *testing.T) {
	addrs, err := Decode([]byte(`{"addresses":[{"name":"Reno","latitude":39.5296,"longitude":-119.8138,"zip_code":"89501"}]}`), true)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	require.Equal(t, "89501", addrs[0].ZipCode)
}

func TestDecode_Empty(t *testing.T) {
	addrs, err := Decode(nil, false)
	require.NoError(t, err)
	require.Empty(t, addrs)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("addresses:\n  - name: Nowhere\n    latitude: 123\n    longitude: 0\n"), false)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = Decode([]byte("addresses:\n  - name: X\n    lat: 1\n"), false)
	require.Error(t, err, "unknown fields are rejected")

	_, err = Decode([]byte(`{"addresses":[{"name":"X","latitude":"north"}]}`), true)
	require.Error(t, err)
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	addrs := []domain.Address{
		{ID: "1", Name: "Salem", City: "Salem", State: "OR", Latitude: 44.9429, Longitude: -123.0351},
		{ID: "2", Name: "Bend", Latitude: 44.0582, Longitude: -121.3153},
	}

	for _, name := range []string{"catalog.yaml", "catalog.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveFile(path, addrs))

		got, err := LoadFile(path)
		require.NoError(t, err, name)
		require.Len(t, got, 2)
		require.Equal(t, addrs[0].Name, got[0].Name)
		require.Equal(t, addrs[0].State, got[0].State)
		require.InDelta(t, addrs[1].Longitude, got[1].Longitude, 1e-12)

		_, err = os.Stat(path + ".tmp")
		require.True(t, os.IsNotExist(err))
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestOpenFile_PersistsAssignedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlCatalog), 0o644))

	first, err := OpenFile(path)
	require.NoError(t, err)
	before, err := first.List(context.Background())
	require.NoError(t, err)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	for _, a := range loaded {
		require.NotEmpty(t, a.ID, a.Name)
	}

	second, err := OpenFile(path)
	require.NoError(t, err)
	after, err := second.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, before, after)
}
