package player_test

import (
	"testing"
	"time"

	"github.com/meltforce/repcircle/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRestTimer_CountsDownToZero verifies a 30 second rest deactivates after
// exactly 30 ticks and stays at zero afterwards.
func TestRestTimer_CountsDownToZero(t *testing.T) {
	timer := player.NewRestTimer(player.WithManualTicks())
	timer.Start(30)
	assert.Equal(t, player.RestState{RemainingSeconds: 30, Active: true}, timer.State())

	var st player.RestState
	for i := 0; i < 29; i++ {
		st = timer.Tick()
	}
	assert.Equal(t, player.RestState{RemainingSeconds: 1, Active: true}, st)

	st = timer.Tick()
	assert.Equal(t, player.RestState{RemainingSeconds: 0, Active: false}, st)

	st = timer.Tick()
	assert.Equal(t, player.RestState{}, st)
}

func TestRestTimer_SkipAndStop(t *testing.T) {
	timer := player.NewRestTimer(player.WithManualTicks())

	timer.Start(45)
	timer.Tick()
	timer.Skip()
	assert.Equal(t, player.RestState{}, timer.State())

	timer.Start(45)
	timer.Tick()
	timer.Stop()
	assert.Equal(t, player.RestState{RemainingSeconds: 44, Active: false}, timer.State())

	// Ticking a stopped timer is a no-op.
	assert.Equal(t, 44, timer.Tick().RemainingSeconds)
}

func TestRestTimer_StartReplacesRunningCountdown(t *testing.T) {
	timer := player.NewRestTimer(player.WithManualTicks())
	timer.Start(60)
	timer.Tick()
	timer.Start(20)
	assert.Equal(t, player.RestState{RemainingSeconds: 20, Active: true}, timer.State())

	timer.Start(0)
	assert.Equal(t, player.RestState{}, timer.State())

	timer.Start(-5)
	assert.False(t, timer.State().Active)
}

// TestRestTimer_BackgroundTicks verifies the ticker goroutine drives the
// countdown and exits once it reaches zero.
func TestRestTimer_BackgroundTicks(t *testing.T) {
	timer := player.NewRestTimer(player.WithTickInterval(5 * time.Millisecond))
	timer.Start(3)

	require.Eventually(t, func() bool {
		return !timer.State().Active
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, timer.State().RemainingSeconds)
}

func TestRestTimer_BackgroundReplaceDoesNotStack(t *testing.T) {
	timer := player.NewRestTimer(player.WithTickInterval(time.Hour))
	for i := 0; i < 10; i++ {
		timer.Start(100 + i)
	}
	assert.Equal(t, player.RestState{RemainingSeconds: 109, Active: true}, timer.State())

	// Skip stops the last goroutine; goleak in TestMain catches any left over.
	timer.Skip()
	assert.Equal(t, player.RestState{}, timer.State())
}
