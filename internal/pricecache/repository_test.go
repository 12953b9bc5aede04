package pricecache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/folioscope/folioscope/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return db
}

func TestPutAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Put(Quotation{
		Identifier: "US0378331005",
		Class:      domain.ClassEquity,
		Currency:   "eur",
		Price:      187.32,
		Source:     "tiingo",
	})
	require.NoError(t, err)

	got, err := repo.Get("US0378331005", domain.ClassEquity, "eur")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 187.32, got.Price)
	assert.Equal(t, "tiingo", got.Source)
	assert.Equal(t, "US0378331005", got.Identifier)
}

func TestGetMissReturnsNil(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.Get("nothing", domain.ClassEquity, "eur")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetExpiredReturnsNil(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Put(Quotation{
		Identifier: "btc",
		Class:      domain.ClassCrypto,
		Currency:   "eur",
		Price:      61000,
		Source:     "coingecko",
		FetchedAt:  time.Now().Add(-2 * TTLBatch),
	})
	require.NoError(t, err)

	// Fresh read misses, GetAny still sees the row
	got, err := repo.Get("btc", domain.ClassCrypto, "eur")
	require.NoError(t, err)
	assert.Nil(t, got)

	stale, err := repo.GetAny("btc", domain.ClassCrypto, "eur")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, 61000.0, stale.Price)
}

func TestIdentifierCaseFolding(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	// Crypto identifiers are case-folded before keying
	err := repo.Put(Quotation{
		Identifier: "  BTC ",
		Class:      domain.ClassCrypto,
		Currency:   "EUR",
		Price:      61000,
		Source:     "coingecko",
	})
	require.NoError(t, err)

	got, err := repo.Get("btc", domain.ClassCrypto, "eur")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "btc", got.Identifier)

	// Equity identifiers preserve case: different case is a different key
	err = repo.Put(Quotation{
		Identifier: "AAPL",
		Class:      domain.ClassEquity,
		Currency:   "eur",
		Price:      187.32,
		Source:     "finnhub",
	})
	require.NoError(t, err)

	miss, err := repo.Get("aapl", domain.ClassEquity, "eur")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestPutUpsertLastWriteWins(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	q := Quotation{
		Identifier: "gold",
		Class:      domain.ClassPreciousMetal,
		Currency:   "eur",
		Price:      2100,
		Source:     "coingecko",
	}
	require.NoError(t, repo.Put(q))

	q.Price = 2150
	require.NoError(t, repo.Put(q))

	got, err := repo.Get("gold", domain.ClassPreciousMetal, "eur")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2150.0, got.Price)
}

func TestCompositeKeyIsolation(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	// Same identifier under different currencies must not collide
	require.NoError(t, repo.Put(Quotation{
		Identifier: "eth", Class: domain.ClassCrypto, Currency: "eur",
		Price: 3000, Source: "coingecko",
	}))
	require.NoError(t, repo.Put(Quotation{
		Identifier: "eth", Class: domain.ClassCrypto, Currency: "usd",
		Price: 3250, Source: "coingecko",
	}))

	eur, err := repo.Get("eth", domain.ClassCrypto, "eur")
	require.NoError(t, err)
	usd, err := repo.Get("eth", domain.ClassCrypto, "usd")
	require.NoError(t, err)

	require.NotNil(t, eur)
	require.NotNil(t, usd)
	assert.Equal(t, 3000.0, eur.Price)
	assert.Equal(t, 3250.0, usd.Price)
}

func TestEvictOlderThan(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Put(Quotation{
		Identifier: "re-1", Class: domain.ClassRealEstate, Currency: "eur",
		Price: 250000, Source: "gemini",
		FetchedAt: time.Now().Add(-8 * 24 * time.Hour),
	}))
	require.NoError(t, repo.Put(Quotation{
		Identifier: "re-2", Class: domain.ClassRealEstate, Currency: "eur",
		Price: 410000, Source: "gemini",
	}))
	// Other classes are untouched by a real-estate eviction
	require.NoError(t, repo.Put(Quotation{
		Identifier: "AAPL", Class: domain.ClassEquity, Currency: "eur",
		Price: 187, Source: "tiingo",
		FetchedAt: time.Now().Add(-30 * 24 * time.Hour),
	}))

	deleted, err := repo.EvictOlderThan(domain.ClassRealEstate, RealEstateRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := repo.GetAny("re-1", domain.ClassRealEstate, "eur")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := repo.GetAny("re-2", domain.ClassRealEstate, "eur")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	equity, err := repo.GetAny("AAPL", domain.ClassEquity, "eur")
	require.NoError(t, err)
	assert.NotNil(t, equity)
}

func TestDeleteExpired(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Put(Quotation{
		Identifier: "btc", Class: domain.ClassCrypto, Currency: "eur",
		Price: 61000, Source: "coingecko",
		FetchedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, repo.Put(Quotation{
		Identifier: "AAPL", Class: domain.ClassEquity, Currency: "eur",
		Price: 187, Source: "tiingo",
	}))

	results, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[domain.ClassCrypto])
	assert.Equal(t, int64(0), results[domain.ClassEquity])
}

func TestCleanupJobRun(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Put(Quotation{
		Identifier: "doge", Class: domain.ClassCrypto, Currency: "eur",
		Price: 0.1, Source: "coingecko",
		FetchedAt: time.Now().Add(-time.Hour),
	}))

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	gone, err := repo.GetAny("doge", domain.ClassCrypto, "eur")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
