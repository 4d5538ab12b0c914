//go:build integration

package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"attest/internal/report/service"
	id "attest/pkg/domain"
	"attest/pkg/testutil/containers"
)

type RedisGuardSuite struct {
	suite.Suite
	guard *service.RedisRenderGuard
	ctx   context.Context
}

func TestRedisGuardSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisGuardSuite))
}

func (s *RedisGuardSuite) SetupSuite() {
	redis := containers.GetManager().GetRedis(s.T())
	s.guard = service.NewRedisRenderGuard(redis.Client)
	s.ctx = context.Background()
}

// TestLeaseExclusion verifies a held lease turns a second acquirer away
// until released, and that leases are scoped per report.
func (s *RedisGuardSuite) TestLeaseExclusion() {
	reportID := id.NewReportID()

	ok, err := s.guard.Acquire(s.ctx, reportID)
	s.Require().NoError(err)
	s.Require().True(ok)

	ok, err = s.guard.Acquire(s.ctx, reportID)
	s.Require().NoError(err)
	s.False(ok, "second acquire while held must be refused")

	other := id.NewReportID()
	ok, err = s.guard.Acquire(s.ctx, other)
	s.Require().NoError(err)
	s.True(ok, "lease on one report must not block another")
	s.Require().NoError(s.guard.Release(s.ctx, other))

	s.Require().NoError(s.guard.Release(s.ctx, reportID))
	ok, err = s.guard.Acquire(s.ctx, reportID)
	s.Require().NoError(err)
	s.True(ok, "release must make the lease available again")
	s.Require().NoError(s.guard.Release(s.ctx, reportID))
}

// TestReleaseWithoutLease verifies releasing an unheld lease is harmless.
func (s *RedisGuardSuite) TestReleaseWithoutLease() {
	s.Require().NoError(s.guard.Release(s.ctx, id.NewReportID()))
}
