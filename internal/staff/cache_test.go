package staff

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lumahq/luma/internal/authz"
	"github.com/lumahq/luma/internal/shared"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	target := testProfile(authz.RoleStaff)
	perms := []authz.EffectivePermission{
		{Resource: "appointments", Action: "view", Granted: true, Source: authz.SourceRole},
	}

	_, ok := cache.Fetch(context.Background(), target.ID)
	require.False(t, ok)

	require.NoError(t, cache.Store(context.Background(), target.ID, perms))

	got, ok := cache.Fetch(context.Background(), target.ID)
	require.True(t, ok)
	require.Equal(t, perms, got)
}

func TestCacheInvalidateDropsSnapshots(t *testing.T) {
	cache, _ := newTestCache(t)
	target := testProfile(authz.RoleStaff)
	perms := []authz.EffectivePermission{
		{Resource: "billing", Action: "refund", Granted: true, Source: authz.SourceOverride},
	}
	require.NoError(t, cache.Store(context.Background(), target.ID, perms))

	require.NoError(t, cache.Invalidate(context.Background()))

	_, ok := cache.Fetch(context.Background(), target.ID)
	require.False(t, ok, "version bump must hide the old snapshot")
}

func TestCacheDegradesWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()
	target := testProfile(authz.RoleStaff)

	_, ok := cache.Fetch(context.Background(), target.ID)
	require.False(t, ok)
	require.Error(t, cache.Store(context.Background(), target.ID, nil))
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *Cache
	target := testProfile(authz.RoleStaff)

	_, ok := cache.Fetch(context.Background(), target.ID)
	require.False(t, ok)
	require.NoError(t, cache.Store(context.Background(), target.ID, nil))
	require.NoError(t, cache.Invalidate(context.Background()))
}

func TestServiceServesStaleCacheUntilInvalidated(t *testing.T) {
	cache, _ := newTestCache(t)
	target := testProfile(authz.RoleStaff)
	repo := newMemoryStaffRepo(target)
	svc := newTestService(repo, func(p *ServiceParams) { p.Cache = cache })

	first, err := svc.Permissions(context.Background(), target.ID)
	require.NoError(t, err)

	getCallsAfterFill := repo.getCalls
	second, err := svc.Permissions(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, getCallsAfterFill, repo.getCalls, "second read must come from cache")

	_, err = svc.Grant(context.Background(), ChangeRequest{
		StaffID:  target.ID,
		Resource: shared.ResourceBilling,
		Action:   shared.ActionRefund,
		Actor:    adminActor(),
	})
	require.NoError(t, err)

	refreshed, err := svc.Permissions(context.Background(), target.ID)
	require.NoError(t, err)
	require.NotEqual(t, first, refreshed, "mutation must invalidate the cached projection")
}
