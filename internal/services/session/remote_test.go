package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/numerus/internal/dependencies/mocks"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/storage"
	"github.com/mcoot/numerus/internal/storage/local"
	"github.com/mcoot/numerus/internal/storage/memory"
	"github.com/mcoot/numerus/internal/testutil"
)

const waitFor = 2 * time.Second

// flakyStorage fails message writes while failing is set and room reads while
// roomErr is set
type flakyStorage struct {
	storage.Storage
	mu      sync.Mutex
	failing bool
	roomErr error
}

func (f *flakyStorage) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyStorage) setRoomErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomErr = err
}

func (f *flakyStorage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	f.mu.Lock()
	err := f.roomErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Storage.GetRoom(ctx, id)
}

func (f *flakyStorage) AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("connection reset by peer")
	}
	return f.Storage.AddMessage(ctx, msg)
}

type client struct {
	sess  *Session
	store *local.MemoryStore
}

type RemoteSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *mocks.MockClock
	rnd     *mocks.MockRandom
	rows    *flakyStorage
	backend *realtime.Service
	clients []*client
}

func TestRemoteSuite(t *testing.T) {
	suite.Run(t, new(RemoteSuite))
}

func (s *RemoteSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(t0)
	s.rnd = mocks.NewMockRandom()
	s.rows = &flakyStorage{Storage: memory.New(s.clock)}
	s.backend = realtime.NewService(s.rows, realtime.NewLocalBroker(), testutil.NopLogger())
	s.clients = nil
}

func (s *RemoteSuite) TearDownTest() {
	for _, c := range s.clients {
		c.sess.Close()
	}
	s.backend.Close()
}

func (s *RemoteSuite) newClient(store *local.MemoryStore) *client {
	if store == nil {
		store = local.NewMemoryStore()
	}
	sess, err := New(s.ctx, DefaultConfig(), Dependencies{
		Clock:   s.clock,
		Random:  s.rnd,
		Store:   store,
		Backend: s.backend,
		Logger:  testutil.NopLogger(),
	})
	s.Require().NoError(err)
	c := &client{sess: sess, store: store}
	s.clients = append(s.clients, c)
	return c
}

func (s *RemoteSuite) create(name string) *client {
	c := s.newClient(nil)
	s.Require().NoError(c.sess.BeginCreate(ModeRemote))
	_, err := c.sess.SubmitUsername(s.ctx, name)
	s.Require().NoError(err)
	s.Equal(ScreenGame, c.sess.Screen())
	return c
}

func (s *RemoteSuite) join(code model.RoomCode, name string) *client {
	c := s.newClient(nil)
	s.Require().NoError(c.sess.BeginJoin(ModeRemote))
	s.Require().NoError(c.sess.SubmitJoinCode(s.ctx, string(code)))
	_, err := c.sess.SubmitUsername(s.ctx, name)
	s.Require().NoError(err)
	return c
}

func (s *RemoteSuite) waitPlayers(c *client, n int) {
	s.Require().Eventually(func() bool { return len(c.sess.State().Players) == n }, waitFor, 5*time.Millisecond)
}

func (s *RemoteSuite) waitState(c *client, cond func(model.GameState) bool) {
	s.Require().Eventually(func() bool { return cond(c.sess.State()) }, waitFor, 5*time.Millisecond)
}

func pendingRemoval(sess *Session, id model.PlayerID) bool {
	sess.mu.Lock()
	m := sess.monitor
	sess.mu.Unlock()
	return m != nil && m.Pending(id)
}

func countMessages(state model.GameState, text string) int {
	n := 0
	for _, m := range state.Messages {
		if m.Text == text {
			n++
		}
	}
	return n
}

func (s *RemoteSuite) TestCreateAndJoin() {
	ada := s.create("Ada")
	code := ada.sess.State().Code
	s.True(code.Valid())

	li := s.join(code, "Li")

	for _, c := range []*client{ada, li} {
		s.waitPlayers(c, 2)
		s.waitState(c, func(st model.GameState) bool { return len(st.Messages) == 2 })
		state := c.sess.State()
		s.Equal("Ada", state.Players[0].Name)
		s.True(state.Players[0].IsOwner)
		s.Equal("Li", state.Players[1].Name)
		s.Equal(1, state.Players[1].TurnOrder)
		s.Equal("Ada created the game.", state.Messages[0].Text)
		s.Equal("Li joined the game.", state.Messages[1].Text)
		s.NotNil(state.LocalPlayer())
	}
	liState := li.sess.State()
	s.Equal("Li", liState.LocalPlayer().Name)

	seat := li.sess.OnlineSession()
	s.Require().NotNil(seat)
	s.Equal(code, seat.RoomCode)
	stored, err := local.LoadOnlineSession(s.ctx, li.store)
	s.Require().NoError(err)
	s.Equal(seat, stored)
}

func (s *RemoteSuite) TestJoinUnknownCode() {
	c := s.newClient(nil)
	s.Require().NoError(c.sess.BeginJoin(ModeRemote))
	s.ErrorIs(c.sess.SubmitJoinCode(s.ctx, "ZZZZZZ"), model.ErrRoomNotFound)
	s.Equal(ScreenJoin, c.sess.Screen())

	_, err := c.sess.CreateOrJoin(s.ctx, JoinRequest{Code: "ZZZZZZ", Username: "Li"})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RemoteSuite) TestPlayNeedsTwoPlayers() {
	ada := s.create("Ada")
	s.waitPlayers(ada, 1)
	_, err := ada.sess.SubmitLetter(s.ctx, "I")
	s.ErrorIs(err, model.ErrNotEnoughPlayers)
}

func (s *RemoteSuite) TestTurnsApplyThroughEcho() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	played, err := li.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.False(played, "not Li's turn")

	played, err = ada.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.True(played)

	for _, c := range []*client{ada, li} {
		s.waitState(c, func(st model.GameState) bool {
			return st.CurrentNumber == 2 && st.TurnIndex == 1 && st.Players[0].Score == 1
		})
	}

	_, err = li.sess.SubmitLetter(s.ctx, "X")
	s.Require().NoError(err)

	for _, c := range []*client{ada, li} {
		s.waitState(c, func(st model.GameState) bool { return st.IsOver() })
		state := c.sess.State()
		last := state.Messages[len(state.Messages)-1]
		s.Equal(model.MessageKindError, last.Kind)
		s.Equal(2, last.Number)
		s.Equal("II", last.CorrectNumeral)
	}
}

func (s *RemoteSuite) TestSharedPartialNumeral() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	_, err := ada.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.waitState(li, func(st model.GameState) bool { return st.TurnIndex == 1 })

	_, err = li.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.waitState(ada, func(st model.GameState) bool { return st.Partial == "I" && st.TurnIndex == 0 })

	_, err = ada.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	for _, c := range []*client{ada, li} {
		s.waitState(c, func(st model.GameState) bool { return st.CurrentNumber == 3 && st.Partial == "" })
	}
}

func (s *RemoteSuite) TestWriteFailureLeavesStateUntouched() {
	ada := s.create("Ada")
	s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	s.rows.setFailing(true)
	_, err := ada.sess.SubmitLetter(s.ctx, "I")
	s.ErrorIs(err, model.ErrTransientWrite)

	state := ada.sess.State()
	s.Equal(1, state.CurrentNumber)
	s.Equal(0, state.TurnIndex)
	s.Zero(state.Players[0].Score)

	s.rows.setFailing(false)
	played, err := ada.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.True(played)
	s.waitState(ada, func(st model.GameState) bool { return st.CurrentNumber == 2 })
}

func (s *RemoteSuite) TestRestartClearsLog() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	_, err := ada.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.waitState(ada, func(st model.GameState) bool { return st.CurrentNumber == 2 })

	s.rnd.QueueIntn(1)
	s.Require().NoError(ada.sess.Restart(s.ctx))

	for _, c := range []*client{ada, li} {
		s.waitState(c, func(st model.GameState) bool {
			return len(st.Messages) == 1 && st.CurrentNumber == 1 && st.TurnIndex == 1 && st.Players[0].Score == 0
		})
		s.Equal("New game! Li starts.", c.sess.State().Messages[0].Text)
	}
}

func (s *RemoteSuite) TestAddBotIsNotDriven() {
	ada := s.create("Ada")
	s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	bot, err := ada.sess.AddBot(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(bot)
	s.Equal(2, bot.TurnOrder)
	s.waitPlayers(ada, 3)
	s.waitState(ada, func(st model.GameState) bool {
		return countMessages(st, bot.Name+" joins as a bot.") == 1
	})

	_, pending := ada.sess.driver.Pending()
	s.False(pending)
}

func (s *RemoteSuite) TestSilentPlayerRemovedOnce() {
	ada := s.create("Ada")
	code := ada.sess.State().Code
	li := s.join(code, "Li")
	bo := s.join(code, "Bo")
	s.waitPlayers(ada, 3)
	s.waitPlayers(bo, 3)

	liID := li.sess.State().LocalPlayerID
	li.sess.Close()

	s.Require().Eventually(func() bool {
		return pendingRemoval(ada.sess, liID) && pendingRemoval(bo.sess, liID)
	}, waitFor, 5*time.Millisecond)

	s.clock.Advance(DefaultConfig().GracePeriod)

	for _, c := range []*client{ada, bo} {
		s.waitPlayers(c, 2)
		s.waitState(c, func(st model.GameState) bool { return countMessages(st, "Li left the game.") == 1 })
	}

	msgs, err := s.backend.ListMessages(s.ctx, ada.sess.State().RoomID)
	s.Require().NoError(err)
	left := 0
	for _, m := range msgs {
		if strings.Contains(m.Text, "left the game") {
			left++
		}
	}
	s.Equal(1, left)
}

func (s *RemoteSuite) TestReturnWithinGraceKeepsSeat() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	roomID := ada.sess.State().RoomID
	liID := li.sess.State().LocalPlayerID
	li.sess.Close()
	s.Require().Eventually(func() bool { return pendingRemoval(ada.sess, liID) }, waitFor, 5*time.Millisecond)

	s.clock.Advance(time.Second)
	back := s.newClient(li.store)
	s.Require().NoError(back.sess.Rehydrate(s.ctx, roomID))
	s.Equal(ScreenGame, back.sess.Screen())
	s.Equal(liID, back.sess.State().LocalPlayerID)

	s.Require().Eventually(func() bool { return !pendingRemoval(ada.sess, liID) }, waitFor, 5*time.Millisecond)
	s.clock.Advance(5 * time.Second)

	players, err := s.backend.ListPlayers(s.ctx, roomID)
	s.Require().NoError(err)
	s.Len(players, 2)
}

func (s *RemoteSuite) TestRehydrateWithStaleSeat() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)
	roomID := ada.sess.State().RoomID
	liID := li.sess.State().LocalPlayerID
	li.sess.Close()

	_, err := s.backend.RemovePlayer(s.ctx, liID)
	s.Require().NoError(err)

	back := s.newClient(li.store)
	s.Require().NotNil(back.sess.OnlineSession())
	s.Require().NoError(back.sess.Rehydrate(s.ctx, roomID))

	s.Equal(ScreenUsername, back.sess.Screen())
	s.Equal(ada.sess.State().Code, back.sess.PendingCode())
	s.Nil(back.sess.OnlineSession())

	_, err = back.sess.SubmitUsername(s.ctx, "Li")
	s.Require().NoError(err)
	s.waitPlayers(ada, 2)
}

func (s *RemoteSuite) TestRehydrateUnknownRoom() {
	c := s.newClient(nil)
	s.ErrorIs(c.sess.Rehydrate(s.ctx, "missing"), model.ErrRoomNotFound)
	s.Equal(ScreenHome, c.sess.Screen())
}

func (s *RemoteSuite) TestExitRemovesSeat() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)

	s.Require().NoError(li.sess.Exit(s.ctx))
	s.Equal(ScreenHome, li.sess.Screen())
	s.Nil(li.sess.OnlineSession())
	stored, err := local.LoadOnlineSession(s.ctx, li.store)
	s.Require().NoError(err)
	s.Nil(stored)

	s.waitPlayers(ada, 1)
}

func (s *RemoteSuite) TestReconnectsAfterFeedsClose() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)
	roomID := ada.sess.State().RoomID
	old := s.backend.Hubs().GetHub(roomID)
	s.Require().NotNil(old)

	s.backend.Hubs().RemoveHub(roomID)

	s.Require().Eventually(func() bool {
		h := s.backend.Hubs().GetHub(roomID)
		return h != nil && h != old && len(h.LiveMembers()) == 2
	}, waitFor, 5*time.Millisecond)
	for _, c := range []*client{ada, li} {
		s.Require().Eventually(func() bool { return c.sess.Screen() == ScreenGame }, waitFor, 5*time.Millisecond)
		s.NotNil(c.sess.OnlineSession())
	}

	played, err := ada.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.True(played)
	for _, c := range []*client{ada, li} {
		s.waitState(c, func(st model.GameState) bool { return st.CurrentNumber == 2 && st.TurnIndex == 1 })
	}

	played, err = li.sess.SubmitLetter(s.ctx, "I")
	s.Require().NoError(err)
	s.True(played)
	for _, c := range []*client{ada, li} {
		s.waitState(c, func(st model.GameState) bool { return st.Partial == "I" && st.TurnIndex == 0 })
	}
}

func (s *RemoteSuite) TestReconnectWithRemovedSeatAsksForUsername() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)
	roomID := ada.sess.State().RoomID

	_, err := s.backend.RemovePlayer(s.ctx, li.sess.State().LocalPlayerID)
	s.Require().NoError(err)
	s.waitPlayers(li, 1)
	s.backend.Hubs().RemoveHub(roomID)

	s.Require().Eventually(func() bool { return li.sess.Screen() == ScreenUsername }, waitFor, 5*time.Millisecond)
	s.Equal(ada.sess.State().Code, li.sess.PendingCode())
	s.Nil(li.sess.OnlineSession())
	stored, err := local.LoadOnlineSession(s.ctx, li.store)
	s.Require().NoError(err)
	s.Nil(stored)

	s.Require().Eventually(func() bool { return ada.sess.Screen() == ScreenGame }, waitFor, 5*time.Millisecond)
	_, err = li.sess.SubmitUsername(s.ctx, "Li")
	s.Require().NoError(err)
	s.waitPlayers(ada, 2)
}

func (s *RemoteSuite) TestReconnectLeavesWhenRoomIsGone() {
	ada := s.create("Ada")
	s.waitPlayers(ada, 1)
	roomID := ada.sess.State().RoomID

	s.rows.setRoomErr(model.ErrRoomNotFound)
	s.backend.Hubs().RemoveHub(roomID)

	s.Require().Eventually(func() bool { return ada.sess.Screen() == ScreenHome }, waitFor, 5*time.Millisecond)
	s.Require().Eventually(func() bool { return ada.sess.OnlineSession() == nil }, waitFor, 5*time.Millisecond)
}

func (s *RemoteSuite) TestExitWhileReconnecting() {
	ada := s.create("Ada")
	li := s.join(ada.sess.State().Code, "Li")
	s.waitPlayers(ada, 2)
	roomID := ada.sess.State().RoomID

	s.rows.setRoomErr(errors.New("connection refused"))
	s.backend.Hubs().RemoveHub(roomID)
	s.Require().Eventually(func() bool { return li.sess.Screen() == ScreenReconnecting }, waitFor, 5*time.Millisecond)

	s.rows.setRoomErr(nil)
	s.Require().NoError(li.sess.Exit(s.ctx))
	s.Equal(ScreenHome, li.sess.Screen())
	s.clock.Advance(time.Minute)

	players, err := s.backend.ListPlayers(s.ctx, roomID)
	s.Require().NoError(err)
	s.Len(players, 1)
	s.Equal(ScreenHome, li.sess.Screen())
}
