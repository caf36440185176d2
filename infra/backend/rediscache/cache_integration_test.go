package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/infra/backend/memory"
	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/test/util"
)

func TestCacheAgainstRedis(t *testing.T) {
	util.RequireE2E(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	addr, cleanup, err := util.StartRedis(ctx)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer cleanup()

	cfg := Config{Enabled: true, Addr: addr, TTLSeconds: 30, Prefix: "it"}
	cfg.SetDefaults()
	rdb := NewClient(cfg)
	defer func() { _ = rdb.Close() }()

	be := memory.New(
		[]model.Technician{{ID: "T1"}},
		[]model.WorkOrder{{ID: "W2", Date: monday, Start: model.At(9, 30), End: model.At(10, 30)}},
	)
	c, err := New(be, rdb, cfg, logger.NopLogger{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.FetchSchedule(ctx, "acme", week())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, be.Fetches())
	ttl, err := rdb.TTL(ctx, "it:acme:schedule:2024-06-03:2024-06-09").Result()
	require.NoError(t, err)
	assert.InDelta(t, 30, ttl.Seconds(), 2)

	require.NoError(t, c.SetAssignment(ctx, "acme", "W2", "T1"))
	n, err := rdb.Exists(ctx, "it:acme:schedule:2024-06-03:2024-06-09").Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	snap, err := c.FetchSchedule(ctx, "acme", week())
	require.NoError(t, err)
	w2, _ := snap.WorkOrder("W2")
	assert.Equal(t, "T1", w2.TechnicianID)
	assert.Equal(t, 2, be.Fetches())
}
