package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/services/session"
	"github.com/mcoot/numerus/internal/storage/local"
	redisstorage "github.com/mcoot/numerus/internal/storage/redis"
	"github.com/mcoot/numerus/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) newSession() *session.Session {
	sess, err := session.New(s.ctx, session.DefaultConfig(), session.Dependencies{
		Clock:   s.app.MockClock,
		Random:  s.app.MockRandom,
		Store:   local.NewMemoryStore(),
		Backend: s.app.Service,
		Logger:  testutil.NopLogger(),
	})
	s.Require().NoError(err)
	s.T().Cleanup(sess.Close)
	return sess
}

func (s *IntegrationSuite) waitFor(sess *session.Session, cond func(model.GameState) bool) {
	s.Require().Eventually(func() bool { return cond(sess.State()) }, 2*time.Second, 5*time.Millisecond)
}

// Test: two players run a round until one of them breaks the count
func (s *IntegrationSuite) TestCompleteOnlineRound() {
	s.app.MockRandom.QueueString("ROMA01")

	host := s.newSession()
	s.Require().NoError(host.BeginCreate(session.ModeRemote))
	_, err := host.SubmitUsername(s.ctx, "Ada")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ROMA01"), host.State().Code)

	guest := s.newSession()
	s.Require().NoError(guest.BeginJoin(session.ModeRemote))
	s.Require().NoError(guest.SubmitJoinCode(s.ctx, "roma01"))
	_, err = guest.SubmitUsername(s.ctx, "Li")
	s.Require().NoError(err)
	s.waitFor(host, func(st model.GameState) bool { return len(st.Players) == 2 })

	// I, II, III typed one letter per turn, alternating players
	moves := []struct {
		sess     *session.Session
		letter   string
		nextTurn int
	}{
		{host, "I", 1},                  // 1 done
		{guest, "I", 0}, {host, "I", 1}, // 2 done
		{guest, "I", 0}, {host, "I", 1}, {guest, "I", 0}, // 3 done
	}
	for i, m := range moves {
		played, err := m.sess.SubmitLetter(s.ctx, m.letter)
		s.Require().NoError(err, "move %d", i)
		s.Require().True(played, "move %d", i)
		want, turn := i+1, m.nextTurn
		for _, sess := range []*session.Session{host, guest} {
			s.waitFor(sess, func(st model.GameState) bool {
				return countPlays(st) == want && st.CurrentTurn() == turn
			})
		}
	}

	state := guest.State()
	s.Equal(4, state.CurrentNumber)
	s.Equal("", state.Partial)
	s.Equal(2, state.Players[0].Score)
	s.Equal(1, state.Players[1].Score)

	// 4 is IV, so a second I breaks the count
	_, err = host.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.waitFor(guest, func(st model.GameState) bool { return st.Partial == "I" && st.CurrentTurn() == 1 })

	played, err := guest.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.True(played)

	s.waitFor(host, func(st model.GameState) bool { return st.IsOver() })
	final := host.State()
	last := final.Messages[len(final.Messages)-1]
	s.Equal(model.MessageKindError, last.Kind)
	s.Equal("IV", last.CorrectNumeral)
	s.Equal(final.Players[1].ID, last.PlayerID)
}

func countPlays(st model.GameState) int {
	n := 0
	for _, m := range st.Messages {
		if m.Kind != model.MessageKindSystem {
			n++
		}
	}
	return n
}

func TestNewWithMemoryStorage(t *testing.T) {
	app, err := New(context.Background(), Config{Logger: testutil.NopLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app.Close() }()

	room, err := app.Service.CreateRoom(context.Background(), &model.Room{Code: "ABC234"})
	if err != nil {
		t.Fatal(err)
	}
	if room.ID == "" {
		t.Fatal("expected an id")
	}
}

func TestNewWithRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()

	app, err := New(context.Background(), Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app.Close() }()

	if _, ok := app.Storage.(*redisstorage.Storage); !ok {
		t.Fatalf("expected redis storage, got %T", app.Storage)
	}
	if _, err := app.Service.CreateRoom(context.Background(), &model.Room{Code: "ABC234"}); err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	cases := map[string]Config{
		"unknown storage":    {StorageType: "mongo"},
		"redis no config":    {StorageType: StorageTypeRedis},
		"postgres no config": {StorageType: StorageTypePostgres},
		"unreachable nats": {NATSConfig: &realtime.NATSConfig{
			URL:           "nats://127.0.0.1:1",
			ReconnectWait: time.Millisecond,
		}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New(ctx, cfg); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
