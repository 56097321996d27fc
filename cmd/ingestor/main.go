package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/waypoint-labs/waypoint/internal/adapters/postgres"
	"github.com/waypoint-labs/waypoint/internal/adapters/valkey"
	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/ports"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
	"github.com/waypoint-labs/waypoint/internal/pkg/catalog"
	"github.com/waypoint-labs/waypoint/internal/pkg/config"
	"github.com/waypoint-labs/waypoint/internal/pkg/logging"
)

const (
	batchSize   = 500
	maxInFlight = 4
)

// Usage:
//
//	ingestor addresses.csv
//	ingestor https://example.com/addresses.csv
//	ingestor seed:1000[:seed]
func main() {
	cfg, err := config.Load("waypoint-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	source := "seed:1000"
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	ctx := context.Background()

	addrs, err := load(ctx, source)
	if err != nil {
		log.Fatalf("load %s: %v", source, err)
	}
	slog.Info("catalog loaded", "source", source, "addresses", len(addrs))

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err == nil {
		defer c.Close()
		cache = c
	}
	svc := usecases.NewAddressService(postgres.NewAddressRepo(db), cache, nil)

	start := time.Now()
	imported, failed := ingest(ctx, svc, addrs)
	slog.Info("ingestion complete", "imported", imported, "failed_batches", failed, "elapsed", time.Since(start))
	if failed > 0 {
		os.Exit(1)
	}
}

// load resolves a source argument into addresses.
func load(ctx context.Context, source string) ([]domain.Address, error) {
	switch {
	case strings.HasPrefix(source, "seed:"):
		n, seed, err := parseSeed(strings.TrimPrefix(source, "seed:"))
		if err != nil {
			return nil, err
		}
		return catalog.Generate(n, seed), nil

	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		body, err := download(ctx, source)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		return catalog.ReadCSV(body)

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return catalog.ReadCSV(f)
	}
}

// parseSeed parses "N" or "N:SEED".
func parseSeed(spec string) (int, uint64, error) {
	countStr, seedStr, hasSeed := strings.Cut(spec, ":")
	n, err := strconv.Atoi(countStr)
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("seed count must be a positive integer, got %q", countStr)
	}
	seed := uint64(time.Now().UnixNano())
	if hasSeed {
		if seed, err = strconv.ParseUint(seedStr, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("seed must be an unsigned integer, got %q", seedStr)
		}
	}
	return n, seed, nil
}

func download(ctx context.Context, url string) (io.ReadCloser, error) {
	client := &http.Client{Timeout: 120 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

// ingest imports addrs in batches, at most maxInFlight at a time. It returns
// the number of imported addresses and failed batches.
func ingest(ctx context.Context, svc *usecases.AddressService, addrs []domain.Address) (int, int) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		imported int
		failed   int
	)
	sem := make(chan struct{}, maxInFlight)

	for start := 0; start < len(addrs); start += batchSize {
		batch := addrs[start:min(start+batchSize, len(addrs))]

		wg.Add(1)
		go func(first int, batch []domain.Address) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := svc.Import(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				slog.Error("batch failed", "first_row", first+1, "size", len(batch), "error", err)
				return
			}
			imported += len(batch)
			slog.Debug("batch imported", "first_row", first+1, "size", len(batch))
		}(start, batch)
	}

	wg.Wait()
	return imported, failed
}
