// Package pricecache provides persistent caching for resolved asset prices.
// Quotations are independent point-in-time snapshots keyed by the composite
// (normalized identifier, asset class, currency) triple; concurrent writers
// race under last-write-wins, which is fine because rows are never mutated
// in place.
package pricecache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/folioscope/folioscope/internal/domain"
)

// Schema creates the quotation table. Applied on startup and by tests.
const Schema = `
CREATE TABLE IF NOT EXISTS price_cache (
	identifier  TEXT NOT NULL,
	asset_class TEXT NOT NULL,
	currency    TEXT NOT NULL,
	price       REAL NOT NULL,
	source      TEXT NOT NULL,
	fetched_at  INTEGER NOT NULL,
	PRIMARY KEY (identifier, asset_class, currency)
);
CREATE INDEX IF NOT EXISTS idx_price_cache_age ON price_cache(asset_class, fetched_at);
`

// Quotation is a cached resolved price.
type Quotation struct {
	Identifier string
	Class      domain.AssetClass
	Currency   string
	Price      float64
	Source     string
	FetchedAt  time.Time
}

// Repository provides cache operations for quotations.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new price cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init applies the cache schema. Idempotent.
func (r *Repository) Init() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to apply price cache schema: %w", err)
	}
	return nil
}

// normalizeKey folds the composite key parts the same way for reads and writes.
func normalizeKey(identifier string, class domain.AssetClass, currency string) (string, string) {
	return domain.NormalizeIdentifier(identifier, class), strings.ToLower(currency)
}

// Get returns the quotation only if it is still fresh for its class,
// nil otherwise. Freshness is fetched_at > now - TTL(class).
func (r *Repository) Get(identifier string, class domain.AssetClass, currency string) (*Quotation, error) {
	id, curr := normalizeKey(identifier, class, currency)
	cutoff := time.Now().Add(-TTL(class)).Unix()

	row := r.db.QueryRow(
		`SELECT price, source, fetched_at FROM price_cache
		 WHERE identifier = ? AND asset_class = ? AND currency = ? AND fetched_at > ?`,
		id, string(class), curr, cutoff,
	)

	return scanQuotation(row, id, class, curr)
}

// GetAny returns the quotation regardless of freshness. Returns nil, nil if
// the key doesn't exist.
func (r *Repository) GetAny(identifier string, class domain.AssetClass, currency string) (*Quotation, error) {
	id, curr := normalizeKey(identifier, class, currency)

	row := r.db.QueryRow(
		`SELECT price, source, fetched_at FROM price_cache
		 WHERE identifier = ? AND asset_class = ? AND currency = ?`,
		id, string(class), curr,
	)

	return scanQuotation(row, id, class, curr)
}

func scanQuotation(row *sql.Row, id string, class domain.AssetClass, curr string) (*Quotation, error) {
	var price float64
	var source string
	var fetchedAt int64

	err := row.Scan(&price, &source, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read price cache: %w", err)
	}

	return &Quotation{
		Identifier: id,
		Class:      class,
		Currency:   curr,
		Price:      price,
		Source:     source,
		FetchedAt:  time.Unix(fetchedAt, 0),
	}, nil
}

// Put upserts a quotation. Last write wins; no read-modify-write is needed
// because quotations are independent snapshots.
func (r *Repository) Put(q Quotation) error {
	id, curr := normalizeKey(q.Identifier, q.Class, q.Currency)
	fetchedAt := q.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO price_cache (identifier, asset_class, currency, price, source, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(q.Class), curr, q.Price, q.Source, fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store quotation for %s/%s: %w", id, q.Class, err)
	}

	return nil
}

// EvictOlderThan deletes all rows of a class older than age.
// Returns the number of rows deleted.
func (r *Repository) EvictOlderThan(class domain.AssetClass, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).Unix()

	result, err := r.db.Exec(
		`DELETE FROM price_cache WHERE asset_class = ? AND fetched_at < ?`,
		string(class), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to evict %s quotations: %w", class, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s eviction: %w", class, err)
	}

	return deleted, nil
}

// DeleteExpired removes all rows that are no longer fresh for their class.
// Real estate keeps its full retention window so the resolver can still
// observe (and deliberately re-resolve) recent low-confidence entries.
// Returns a map of class to number of rows deleted.
func (r *Repository) DeleteExpired() (map[domain.AssetClass]int64, error) {
	results := make(map[domain.AssetClass]int64)

	classes := []domain.AssetClass{
		domain.ClassEquity, domain.ClassETF, domain.ClassFund, domain.ClassCommodity,
		domain.ClassCrypto, domain.ClassPreciousMetal,
		domain.ClassMineral, domain.ClassPrivateEquity, domain.ClassOther,
	}
	for _, class := range classes {
		deleted, err := r.EvictOlderThan(class, TTL(class))
		if err != nil {
			return results, err
		}
		results[class] = deleted
	}

	deleted, err := r.EvictOlderThan(domain.ClassRealEstate, RealEstateRetention)
	if err != nil {
		return results, err
	}
	results[domain.ClassRealEstate] = deleted

	return results, nil
}
