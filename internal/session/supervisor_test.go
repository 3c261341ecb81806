package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/matchmaking"
	"github.com/ttglive/ttg-backend/internal/repository"
)

type supervisedMatch struct {
	supervisor *Supervisor
	clock      *quartz.Mock
	accounts   *fakeAccounts
	senderA    *fakeSender
	senderB    *fakeSender
}

func startSupervisedMatch(t *testing.T, grace time.Duration) *supervisedMatch {
	t.Helper()

	match := &supervisedMatch{
		clock:   quartz.NewMock(t),
		senderA: &fakeSender{},
		senderB: &fakeSender{},
		accounts: newFakeAccounts(map[string]int{
			"player-a": 500,
			"player-b": 500,
		}),
	}

	cfg := Config{BetWindow: 10 * time.Second, WinBonus: 25}
	match.supervisor = NewSupervisor(slog.Default(), match.clock, cfg, grace, match.accounts)

	match.supervisor.StartMatch(
		context.Background(),
		&matchmaking.Entry{Player: &entity.Player{ID: "player-a", Points: 500}, Sender: match.senderA},
		&matchmaking.Entry{Player: &entity.Player{ID: "player-b", Points: 500}, Sender: match.senderB},
	)

	return match
}

func waitForDone(t *testing.T, sess *Session) {
	t.Helper()

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

func TestSupervisor_StartMatch(t *testing.T) {
	t.Run("both identities resolve to the same session", func(t *testing.T) {
		match := startSupervisedMatch(t, 15*time.Second)

		sessA, seatA, ok := match.supervisor.SessionFor("player-a")
		require.True(t, ok)
		require.Equal(t, entity.SeatA, seatA)

		sessB, seatB, ok := match.supervisor.SessionFor("player-b")
		require.True(t, ok)
		require.Equal(t, entity.SeatB, seatB)
		require.Same(t, sessA, sessB)

		require.Equal(t, 1, match.supervisor.Count())

		_, _, ok = match.supervisor.SessionFor("stranger")
		require.False(t, ok)
	})
}

func TestSupervisor_GraceWindow(t *testing.T) {
	t.Run("expired grace forfeits the match", func(t *testing.T) {
		match := startSupervisedMatch(t, 15*time.Second)
		sess, _, _ := match.supervisor.SessionFor("player-b")

		match.supervisor.PlayerDropped("player-b")
		match.clock.Advance(15 * time.Second).MustWait(context.Background())

		waitForDone(t, sess)
		require.Equal(t, entity.OutcomeForfeit, sess.game.Outcome.Kind)
		require.Equal(t, entity.SeatA, sess.game.Outcome.Winner)
		require.Equal(t, []string{repository.ResultWin}, match.accounts.resultsFor("player-a"))

		require.Eventually(t, func() bool {
			return match.supervisor.Count() == 0
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("reconnect inside grace keeps the match alive", func(t *testing.T) {
		match := startSupervisedMatch(t, 15*time.Second)
		sess, _, _ := match.supervisor.SessionFor("player-b")

		match.supervisor.PlayerDropped("player-b")

		replacement := &fakeSender{}
		require.True(t, match.supervisor.TryRebind("player-b", replacement))

		match.clock.Advance(time.Minute).MustWait(context.Background())

		select {
		case <-sess.Done():
			t.Fatal("session finished despite reconnect inside grace")
		case <-time.After(100 * time.Millisecond):
		}
		require.Equal(t, 1, match.supervisor.Count())

		// the rebound seat gets a fresh full snapshot
		require.Eventually(t, func() bool {
			return len(replacement.actions()) > 0
		}, 5*time.Second, 10*time.Millisecond)
		require.Equal(t, ActionGameStart, replacement.last(t).action)
	})

	t.Run("zero grace forfeits immediately", func(t *testing.T) {
		match := startSupervisedMatch(t, 0)
		sess, _, _ := match.supervisor.SessionFor("player-a")

		match.supervisor.PlayerDropped("player-a")

		waitForDone(t, sess)
		require.Equal(t, entity.SeatB, sess.game.Outcome.Winner)
	})

	t.Run("both seats gone discards without results", func(t *testing.T) {
		match := startSupervisedMatch(t, 15*time.Second)
		sess, _, _ := match.supervisor.SessionFor("player-a")

		match.supervisor.PlayerDropped("player-a")
		match.supervisor.PlayerDropped("player-b")
		match.clock.Advance(15 * time.Second).MustWait(context.Background())

		waitForDone(t, sess)
		require.Empty(t, match.accounts.resultsFor("player-a"))
		require.Empty(t, match.accounts.resultsFor("player-b"))
		require.Equal(t, 500, match.accounts.balance("player-a"))
		require.Equal(t, 500, match.accounts.balance("player-b"))
	})
}

func TestSupervisor_TryRebind(t *testing.T) {
	t.Run("unknown identity cannot rebind", func(t *testing.T) {
		match := startSupervisedMatch(t, 15*time.Second)

		require.False(t, match.supervisor.TryRebind("stranger", &fakeSender{}))
	})

	t.Run("finished session cannot be rebound", func(t *testing.T) {
		match := startSupervisedMatch(t, 0)
		sess, _, _ := match.supervisor.SessionFor("player-b")

		match.supervisor.PlayerDropped("player-b")
		waitForDone(t, sess)

		require.Eventually(t, func() bool {
			return !match.supervisor.TryRebind("player-b", &fakeSender{})
		}, 5*time.Second, 10*time.Millisecond)
	})
}
