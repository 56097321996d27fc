package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

const addressColumns = `id::text, name, COALESCE(street, ''), COALESCE(city, ''), COALESCE(state, ''),
	COALESCE(zip_code, ''), COALESCE(country, ''), latitude, longitude, COALESCE(notes, ''),
	created_at, updated_at`

// AddressRepo implements ports.AddressRepository with pgx.
type AddressRepo struct {
	db *DB
}

// NewAddressRepo creates a new AddressRepo.
func NewAddressRepo(db *DB) *AddressRepo {
	return &AddressRepo{db: db}
}

// parseID canonicalises id so lookups compare against the uuid primary key
// directly. Malformed IDs cannot exist in the table.
func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: address %s", domain.ErrNotFound, id)
	}
	return u.String(), nil
}

// parseIDs keeps the well-formed IDs among ids.
func parseIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := parseID(id); err == nil {
			out = append(out, u)
		}
	}
	return out
}

func scanAddress(row pgx.Row) (domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID, &a.Name, &a.Street, &a.City, &a.State,
		&a.ZipCode, &a.Country, &a.Latitude, &a.Longitude, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func (r *AddressRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Address, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	addrs := []domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

// List returns every address ordered by name.
func (r *AddressRepo) List(ctx context.Context) ([]domain.Address, error) {
	return r.query(ctx, `SELECT `+addressColumns+` FROM addresses ORDER BY name, id`)
}

// Page returns a window of the catalog ordered by name.
func (r *AddressRepo) Page(ctx context.Context, offset, limit int) ([]domain.Address, error) {
	return r.query(ctx, `SELECT `+addressColumns+` FROM addresses ORDER BY name, id OFFSET $1 LIMIT $2`, offset, limit)
}

// Count returns the catalog size.
func (r *AddressRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM addresses`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// WithinBounds returns addresses inside b (edges inclusive).
func (r *AddressRepo) WithinBounds(ctx context.Context, b domain.Bounds) ([]domain.Address, error) {
	return r.query(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		ORDER BY name, id
	`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

// GetByID returns a single address.
func (r *AddressRepo) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	a, err := scanAddress(r.db.Pool.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, key))
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// GetByIDs returns the addresses with the given IDs, in arbitrary order.
// Unknown IDs are skipped.
func (r *AddressRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Address, error) {
	keys := parseIDs(ids)
	if len(keys) == 0 {
		return []domain.Address{}, nil
	}
	return r.query(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = ANY($1::uuid[])`, keys)
}

// Create inserts a and fills its ID and timestamps.
func (r *AddressRepo) Create(ctx context.Context, a *domain.Address) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO addresses (id, name, street, city, state, zip_code, country, latitude, longitude, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, a.ID, a.Name, a.Street, a.City, a.State, a.ZipCode, a.Country, a.Latitude, a.Longitude, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// Update overwrites every mutable field of an existing address.
func (r *AddressRepo) Update(ctx context.Context, a *domain.Address) error {
	key, err := parseID(a.ID)
	if err != nil {
		return err
	}
	err = r.db.Pool.QueryRow(ctx, `
		UPDATE addresses
		SET name = $2, street = $3, city = $4, state = $5, zip_code = $6,
		    country = $7, latitude = $8, longitude = $9, notes = $10, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, key, a.Name, a.Street, a.City, a.State, a.ZipCode, a.Country, a.Latitude, a.Longitude, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// Delete removes an address.
func (r *AddressRepo) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, key)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpsertBatch inserts or replaces many addresses using pgx.Batch.
// Addresses without an ID get a fresh one.
func (r *AddressRepo) UpsertBatch(ctx context.Context, addrs []domain.Address) error {
	if len(addrs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range addrs {
		a := &addrs[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		batch.Queue(`
			INSERT INTO addresses (id, name, street, city, state, zip_code, country, latitude, longitude, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, street = EXCLUDED.street, city = EXCLUDED.city,
			    state = EXCLUDED.state, zip_code = EXCLUDED.zip_code, country = EXCLUDED.country,
			    latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			    notes = EXCLUDED.notes, updated_at = now()
		`, a.ID, a.Name, a.Street, a.City, a.State, a.ZipCode, a.Country, a.Latitude, a.Longitude, a.Notes)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range addrs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", mapErr(err))
		}
	}
	return nil
}
