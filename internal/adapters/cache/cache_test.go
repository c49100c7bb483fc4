package cache

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/db"
	"tripsynth/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = db.Migrate(context.Background(), conn, db.SQLite)
	require.NoError(t, err)
	return conn
}

func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conn, err := db.OpenPostgres(url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = db.Migrate(context.Background(), conn, db.Postgres)
	require.NoError(t, err)
	_, err = conn.Exec(`TRUNCATE leg_cache, geocode_cache`)
	require.NoError(t, err)
	return conn
}

func exerciseLegCache(t *testing.T, c ports.LegCache) {
	ctx := context.Background()
	origin := "-9.13930,38.71070"

	got, err := c.GetMany(ctx, origin, []string{"a", "b"}, domain.ModeDrive)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.PutMany(ctx, origin, map[string]ports.RouteResult{
		"a": {DistanceMeters: 1200, DurationSeconds: 300},
		"b": {DistanceMeters: 800, DurationSeconds: 200},
	}, domain.ModeDrive))
	require.NoError(t, c.PutMany(ctx, origin, map[string]ports.RouteResult{
		"a": {DistanceMeters: 1100, DurationSeconds: 900},
	}, domain.ModeWalk))
	require.NoError(t, c.PutMany(ctx, origin, map[string]ports.RouteResult{
		"b": {DistanceMeters: 850, DurationSeconds: 210},
	}, domain.ModeDrive))

	got, err = c.GetMany(ctx, origin, []string{"a", " b ", "b", "c", ""}, domain.ModeDrive)
	require.NoError(t, err)
	assert.Equal(t, map[string]ports.RouteResult{
		"a": {DistanceMeters: 1200, DurationSeconds: 300},
		"b": {DistanceMeters: 850, DurationSeconds: 210},
	}, got)

	got, err = c.GetMany(ctx, origin, []string{"a"}, domain.ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, 900, got["a"].DurationSeconds)

	_, err = c.GetMany(ctx, "", []string{"a"}, domain.ModeDrive)
	assert.Error(t, err)
}

func exerciseGeocodeCache(t *testing.T, c ports.GeocodeCache) {
	ctx := context.Background()
	require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{
		"Praça do Comércio, Lisbon": {Lon: -9.1366, Lat: 38.7075},
	}))
	got, err := c.GetMany(ctx, []string{"Praça do Comércio, Lisbon", "Nowhere"})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Coordinates{"Praça do Comércio, Lisbon": {Lon: -9.1366, Lat: 38.7075}}, got)

	assert.Error(t, c.PutMany(ctx, map[string]domain.Coordinates{" ": {}}))
}

func TestSqliteLegCache(t *testing.T) {
	exerciseLegCache(t, NewSqliteLegCache(openSQLite(t)))
}

func TestSqliteGeocodeCache(t *testing.T) {
	exerciseGeocodeCache(t, NewSqliteGeocodeCache(openSQLite(t)))
}

func TestSQLLegCache(t *testing.T) {
	exerciseLegCache(t, NewSQLLegCache(openPostgres(t)))
}

func TestSQLGeocodeCache(t *testing.T) {
	exerciseGeocodeCache(t, NewSQLGeocodeCache(openPostgres(t)))
}

func TestRedisLegCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewRedisLegCache(client, WithTTL(time.Hour), WithPrefix("test:legs"))
	exerciseLegCache(t, c)

	key := "test:legs:drive:-9.13930,38.71070"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(2 * time.Hour)
	got, err := c.GetMany(context.Background(), "-9.13930,38.71070", []string{"a"}, domain.ModeDrive)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNilDB(t *testing.T) {
	_, err := NewSqliteLegCache(nil).GetMany(context.Background(), "o", []string{"d"}, domain.ModeDrive)
	assert.Error(t, err)
	assert.Error(t, NewSQLGeocodeCache(nil).PutMany(context.Background(), map[string]domain.Coordinates{"a": {}}))
}
