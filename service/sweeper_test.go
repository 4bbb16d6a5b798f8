package service

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleardesk/walletauth/adapters/store"
	"github.com/cleardesk/walletauth/core"
)

func TestSweeperDeletesExpiredSessionsOnTick(t *testing.T) {
	t0 := anchor()
	clk := clockwork.NewFakeClockAt(t0)
	mem := store.NewMemoryStore()
	svc := newTestService(clk, mem)

	expired := &core.WalletSession{
		ID:        "stale",
		Address:   "0xaaa0000000000000000000000000000000000001",
		Nonce:     "n",
		IssuedAt:  t0.Add(-25 * time.Hour),
		ExpiresAt: t0.Add(-time.Hour),
	}
	require.NoError(t, mem.UpsertSession(context.Background(), expired))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewSweeper(svc, time.Minute, zap.NewNop()).Run(ctx)

	clk.BlockUntil(1)
	clk.Advance(time.Minute)

	require.Eventually(t, func() bool {
		return mem.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
