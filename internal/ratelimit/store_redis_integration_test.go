//go:build integration

package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"startingline/internal/ratelimit"
	"startingline/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAdmitsUpToLimit() {
	ctx := context.Background()
	for i := range 3 {
		result, err := s.store.Allow(ctx, "ip:203.0.113.7", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(2-i, result.Remaining)
	}

	result, err := s.store.Allow(ctx, "ip:203.0.113.7", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.ResetAt.After(time.Now()))
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	window := 300 * time.Millisecond

	_, err := s.store.Allow(ctx, "ip:short", 1, window)
	s.Require().NoError(err)
	denied, err := s.store.Allow(ctx, "ip:short", 1, window)
	s.Require().NoError(err)
	s.False(denied.Allowed)

	s.Eventually(func() bool {
		result, err := s.store.Allow(ctx, "ip:short", 1, window)
		return err == nil && result.Allowed
	}, 3*time.Second, 100*time.Millisecond)
}

func (s *RedisStoreSuite) TestConcurrentAdmissionsNeverExceedLimit() {
	ctx := context.Background()
	const callers, limit = 40, 7

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(ctx, "ip:burst", limit, time.Minute)
			if err == nil && result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(limit), allowed.Load())
}
