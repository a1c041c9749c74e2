package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdk/komari-sub001/internal/game"
)

func TestUpdateEntersIdleOnceDetected(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 40, Y: 20})

	h.tick()

	assert.Equal(t, Idle{}, h.entity.State)
	require.NotNil(t, h.entity.Context.LastKnownPos)
	assert.Equal(t, game.Point{X: 40, Y: 20}, *h.entity.Context.LastKnownPos)
}

func TestUpdateUnstucksAfterRepeatedDetectionFailures(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())

	h.tick()
	assert.Equal(t, Detecting{}, h.entity.State)
	h.tick()
	assert.Equal(t, Detecting{}, h.entity.State)
	h.tick()
	assert.IsType(t, Unstucking{}, h.entity.State)
	assert.Equal(t, DirectionAny, h.entity.Context.lastKnownDirection)
}

func TestUpdateUnstucksRightAwayOffMinimap(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 250, Y: 50})

	h.tick()

	assert.IsType(t, Unstucking{}, h.entity.State)
	assert.Zero(t, h.entity.Context.detectFailCount)
}

func TestUpdateKeepsDetectingWhenMinimapOverlapped(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.minimap.PartiallyOverlapping = true

	for range 5 {
		h.tick()
	}

	assert.Equal(t, Detecting{}, h.entity.State)
}

func TestUpdateHaltingLeavesStateUntouched(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.res.Halting = true
	h.entity.State = Moving{Dest: game.Point{X: 10, Y: 10}}

	h.tick()

	assert.Equal(t, Moving{Dest: game.Point{X: 10, Y: 10}}, h.entity.State)
}

func TestUpdateMoveActionCompletesAtDestination(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 50, Y: 20})
	h.entity.Context.SetNormalAction(1, Move{Position: Position{X: 50, Y: 20}})

	h.tick()
	assert.Equal(t, Moving{Dest: game.Point{X: 50, Y: 20}}, h.entity.State)

	h.tick()
	assert.Equal(t, Idle{}, h.entity.State)
	assert.False(t, h.entity.Context.HasNormalAction())
}

func TestUpdateKeyActionPressesOnce(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 50, Y: 20})
	h.entity.Context.SetNormalAction(1, Key{Key: game.KeyF, Count: 1})

	h.tick()
	assert.IsType(t, UseKey{}, h.entity.State)

	for i := 0; i < 10 && h.entity.Context.HasNormalAction(); i++ {
		h.tick()
	}

	assert.Equal(t, Idle{}, h.entity.State)
	assert.False(t, h.entity.Context.HasNormalAction())
	assert.Equal(t, 1, h.input.pressed(game.KeyF))
}

func TestUpdateKeyActionRepeatsCount(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 50, Y: 20})
	h.entity.Context.SetNormalAction(1, Key{Key: game.KeyF, Count: 3})

	for i := 0; i < 20 && h.entity.Context.HasNormalAction(); i++ {
		h.tick()
	}

	assert.False(t, h.entity.Context.HasNormalAction())
	assert.Equal(t, 3, h.input.pressed(game.KeyF))
}

func TestUpdatePriorityActionResetsToIdle(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 50, Y: 20})
	h.entity.Context.SetNormalAction(1, Move{Position: Position{X: 150, Y: 20}})

	h.tick()
	require.IsType(t, Moving{}, h.entity.State)

	h.entity.Context.SetPriorityAction(2, Key{Key: game.KeyG, Count: 1})
	h.tick()

	assert.IsType(t, UseKey{}, h.entity.State)
	assert.True(t, h.entity.Context.HasNormalAction())
}

func TestUpdateRuneCashShopTakesOver(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.detector.setPlayer(&game.Point{X: 50, Y: 20})
	h.res.HID.KeyDown(game.KeyLeft)
	h.entity.Context.runeCashShop = true

	h.tick()

	assert.Equal(t, CashShopThenExit{}, h.entity.State)
	assert.False(t, h.entity.Context.runeCashShop)
	assert.True(t, h.res.HID.IsKeyCleared(game.KeyLeft))
}

func TestTrackRuneFailCountRequestsCashShop(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	ctx := h.entity.Context

	for range maxRuneFailedCount - 1 {
		ctx.trackRuneFailCount(h.res)
	}
	assert.False(t, ctx.runeCashShop)

	ctx.trackRuneFailCount(h.res)
	assert.True(t, ctx.runeCashShop)
	assert.Zero(t, ctx.runeFailedCount)
}

func TestMovingPicksPrimitive(t *testing.T) {
	tests := []struct {
		name        string
		dest        game.Point
		grappleKey  game.KeyKind
		teleportKey game.KeyKind
		want        State
	}{
		{name: "far horizontal double jumps", dest: game.Point{X: 80, Y: 50}, want: DoubleJumping{}},
		{name: "medium horizontal adjusts", dest: game.Point{X: 70, Y: 50}, want: Adjusting{}},
		{name: "short rise jumps", dest: game.Point{X: 50, Y: 56}, want: Jumping{}},
		{name: "tall rise up jumps", dest: game.Point{X: 50, Y: 65}, want: UpJumping{}},
		{name: "tall rise without grappling key up jumps", dest: game.Point{X: 50, Y: 80}, want: UpJumping{}},
		{name: "taller rise grapples", dest: game.Point{X: 50, Y: 80}, grappleKey: game.KeyR, want: Grappling{}},
		{name: "rise under grappling threshold up jumps", dest: game.Point{X: 50, Y: 70}, grappleKey: game.KeyR, want: UpJumping{}},
		{
			name:        "teleport raises grappling threshold",
			dest:        game.Point{X: 50, Y: 80},
			grappleKey:  game.KeyR,
			teleportKey: game.KeyW,
			want:        UpJumping{},
		},
		{name: "drop falls", dest: game.Point{X: 50, Y: 40}, want: Falling{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.GrapplingKey = tt.grappleKey
			cfg.TeleportKey = tt.teleportKey
			h := newTestHarness(t, cfg)
			h.at(game.Point{X: 50, Y: 50})

			got := updateMoving(h.res, h.entity, h.minimap, Moving{Dest: tt.dest})

			assert.IsType(t, tt.want, got)
		})
	}
}

func TestMovingAtDestinationCompletesMove(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.at(game.Point{X: 50, Y: 50})
	h.entity.Context.SetNormalAction(1, Move{Position: Position{X: 50, Y: 50}})

	got := updateMoving(h.res, h.entity, h.minimap, Moving{Dest: game.Point{X: 50, Y: 50}})

	assert.Equal(t, Idle{}, got)
	assert.False(t, h.entity.Context.HasNormalAction())
}

func TestMovingAtDestinationWaitsAfterMove(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.at(game.Point{X: 50, Y: 50})
	h.entity.Context.SetNormalAction(1, Move{Position: Position{X: 50, Y: 50}, WaitAfterMoveTicks: 12})

	got := updateMoving(h.res, h.entity, h.minimap, Moving{Dest: game.Point{X: 50, Y: 50}})

	assert.Equal(t, Stalling{Max: 12}, got)
	assert.True(t, h.entity.Context.HasNormalAction())
}

func TestMovingAbortsActionOnRepeat(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	ctx := h.entity.Context
	h.at(game.Point{X: 50, Y: 50})
	ctx.SetNormalAction(1, Move{Position: Position{X: 70, Y: 50}})
	ctx.lastMovement = MovementAdjusting
	ctx.lastMovementNormal[MovementAdjusting] = ctx.Config.Thresholds.HorizontalRepeat - 1

	got := updateMoving(h.res, h.entity, h.minimap, Moving{Dest: game.Point{X: 70, Y: 50}})

	assert.Equal(t, Idle{}, got)
	assert.False(t, ctx.HasNormalAction())
}

func TestMovingUnstucksAfterTooManyAttempts(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.at(game.Point{X: 50, Y: 50})
	h.entity.Context.unstuckCount = h.entity.Context.Config.Thresholds.Unstuck - 1

	got := updateMoving(h.res, h.entity, h.minimap, Moving{Dest: game.Point{X: 90, Y: 50}})

	assert.IsType(t, Unstucking{}, got)
	assert.Zero(t, h.entity.Context.unstuckCount)
}

func TestMovingFollowsIntermediates(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	h.at(game.Point{X: 50, Y: 50})
	intermediates := newIntermediates([]Waypoint{
		{Point: game.Point{X: 50, Y: 50}},
		{Point: game.Point{X: 90, Y: 50}},
	}, true)
	advanced, first, _, _ := intermediates.next()

	got := updateMoving(h.res, h.entity, h.minimap, Moving{Dest: first, Intermediates: advanced})

	assert.Equal(t, Moving{Dest: game.Point{X: 90, Y: 50}, Exact: true, Intermediates: &Intermediates{current: 2, points: advanced.points}}, got)
}

func TestStallingResumesStoredState(t *testing.T) {
	h := newTestHarness(t, DefaultConfig())
	resume := Jumping{Movement: newMovement(game.Point{}, game.Point{X: 1}, false, nil)}
	h.entity.Context.stallingTimeoutState = resume

	var state State = Stalling{Max: 3}
	for i := 0; i < 5; i++ {
		s, ok := state.(Stalling)
		if !ok {
			break
		}
		state = updateStalling(h.res, h.entity, s)
	}

	assert.Equal(t, resume, state)
	assert.Nil(t, h.entity.Context.stallingTimeoutState)
}

func TestCanInterrupt(t *testing.T) {
	pos := &game.Point{X: 50, Y: 50}

	assert.True(t, CanInterrupt(Idle{}, pos))
	assert.True(t, CanInterrupt(Moving{Dest: game.Point{X: 90, Y: 50}}, pos))
	assert.False(t, CanInterrupt(Moving{Dest: game.Point{X: 52, Y: 50}}, pos))
	assert.False(t, CanInterrupt(newDoubleJumping(newMovement(*pos, *pos, false, nil), true, false), pos))
	assert.False(t, CanInterrupt(Jumping{}, pos))
	assert.True(t, CanInterrupt(Jumping{Movement: Movement{Completed: true}}, pos))
	assert.False(t, CanInterrupt(UseKey{}, pos))
	assert.False(t, CanInterrupt(Chatting{}, pos))
}
