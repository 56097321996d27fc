package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSeed(t *testing.T) {
	n, seed, err := parseSeed("250:9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 250 || seed != 9 {
		t.Errorf("expected 250:9, got %d:%d", n, seed)
	}

	if n, _, err := parseSeed("12"); err != nil || n != 12 {
		t.Errorf("expected 12 without seed, got %d (%v)", n, err)
	}

	for _, bad := range []string{"", "0", "-3", "ten", "5:x"} {
		if _, _, err := parseSeed(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestLoad_Seed(t *testing.T) {
	addrs, err := load(context.Background(), "seed:30:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 30 {
		t.Errorf("expected 30 addresses, got %d", len(addrs))
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addresses.csv")
	data := "name,street,city,state,zip_code,country,latitude,longitude,notes\n" +
		"Depot,1 Main St,Vancouver,BC,12345,CA,49.28,-123.12,\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	addrs, err := load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0].Name != "Depot" || addrs[0].Country != "CA" {
		t.Errorf("unexpected addresses %+v", addrs)
	}

	if _, err := load(context.Background(), filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
