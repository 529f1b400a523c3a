package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	ctx := context.Background()
	h, clock := newTestHandler(t)
	alice := newTestAccount(t, h.Store, "alice@example.com")
	bob := newTestAccount(t, h.Store, "bob@example.com")

	_, err := h.CreateOneTimeAccessToken(ctx, alice)
	require.NoError(t, err)
	_, err = h.CreateOneTimeAccessToken(ctx, bob)
	require.NoError(t, err)
	keep, err := h.CreateRefreshToken(ctx, bob)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hk := NewHousekeepingService(h.Store, h, logger, 0)
	require.Equal(t, time.Hour, hk.Interval)

	clock.Set(t0.Add(time.Hour))
	require.EqualValues(t, 2, hk.Sweep(ctx))
	require.Zero(t, hk.Sweep(ctx))

	ids, err := h.Store.Accounts().ListAccountIDsWithTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{bob.ID}, ids)
	require.True(t, h.CheckTokenValidity(ctx, bob, &keep.Token))
}

func TestHousekeepingStartStop(t *testing.T) {
	h, _ := newTestHandler(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hk := NewHousekeepingService(h.Store, h, logger, 10*time.Millisecond)
	hk.Start()
	time.Sleep(30 * time.Millisecond)
	hk.Stop()
}
