package rules

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/dateutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	cache := NewRedisCache(client, time.Hour)

	_, ok, err := cache.Get(ctx, "rules:EMP-1")
	require.NoError(t, err)
	assert.False(t, ok)

	specs := testDocument().Rules
	require.NoError(t, cache.Set(ctx, "rules:EMP-1", specs))

	got, ok, err := cache.Get(ctx, "rules:EMP-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, len(specs))

	// decoded specs rebuild the same rules
	for i := range specs {
		want, err := specs[i].ToRule()
		require.NoError(t, err)
		rebuilt, err := got[i].ToRule()
		require.NoError(t, err)
		assert.Equal(t, want.RuleID(), rebuilt.RuleID())
		assert.Equal(t, want.RuleBasis(), rebuilt.RuleBasis())
		assert.Equal(t, want.RuleJurisdiction(), rebuilt.RuleJurisdiction())
	}
	assert.Equal(t, int64(17610000), got[0].AnnualWageCap.Cents)
	assert.True(t, got[0].Rate.Decimal.Equal(specs[0].Rate.Decimal))
	require.NotNil(t, got[8].EffectiveFrom)
	assert.True(t, got[8].EffectiveFrom.Equal(dateutil.Date(2025, time.January, 1)))
	assert.True(t, got[5].Employer)
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	cache := NewRedisCache(client, time.Minute)

	require.NoError(t, cache.Set(ctx, "k", testDocument().Rules[:1]))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheBump(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	cache := NewRedisCache(client, time.Hour)

	require.NoError(t, cache.Set(ctx, "k", testDocument().Rules[:1]))
	ver, err := cache.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), addr)
	assert.ErrorContains(t, err, "rules/cache: ping")
}

func TestCachedCatalogWithRedis(t *testing.T) {
	_, client := newTestRedis(t)
	static, err := NewStaticCatalog(testDocument())
	require.NoError(t, err)
	src := &countingSelector{inner: static}

	// two catalogs share one Redis, as two worker processes would
	first := NewCachedCatalog(src, NewRedisCache(client, time.Hour), nil)
	second := NewCachedCatalog(src, NewRedisCache(client, time.Hour), nil)
	q := Query{EmployerID: "EMP-1", AsOf: dateutil.Date(2025, time.March, 14), WorkState: "CA"}

	tc, err := first.TaxContext(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"CA_PIT", "CA_SDI_2025"}, ruleIDs(tc.State))

	tc, err = second.TaxContext(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"FUTA"}, ruleIDs(tc.EmployerSpecific))
	assert.Equal(t, int32(1), src.calls.Load())

	var flat domain.FlatRateTax
	for _, r := range tc.Federal {
		if r.RuleID() == "FICA_SS" {
			flat = r.(domain.FlatRateTax)
		}
	}
	require.NotNil(t, flat.AnnualWageCap)
	assert.Equal(t, int64(17610000), flat.AnnualWageCap.Cents)
}
