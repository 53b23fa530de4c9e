package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/numerus/internal/api"
	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
	"github.com/mcoot/numerus/internal/storage/local"
	"github.com/mcoot/numerus/internal/storage/memory"
	"github.com/mcoot/numerus/internal/testutil"
)

var roomCodeRe = regexp.MustCompile(`Room code ([A-Z0-9]{6})`)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func roomCode(t *testing.T, out string) string {
	t.Helper()
	m := roomCodeRe.FindStringSubmatch(out)
	require.Len(t, m, 2, "no room code in output: %s", out)
	return m[1]
}

func startServer(t *testing.T) string {
	t.Helper()

	backend := realtime.NewService(memory.New(clock.New()), realtime.NewLocalBroker(), testutil.NopLogger())
	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:  testutil.NopLogger(),
		Backend: backend,
		APIKey:  "cli-key",
	}))
	t.Cleanup(server.Close)
	t.Cleanup(backend.Close)
	return server.URL
}

func TestPlaySavesGame(t *testing.T) {
	t.Setenv("NUMERUS_SERVER", "")
	dir := t.TempDir()

	out, err := runCLI(t, "I\n/quit\n", "--state-dir", dir, "play", "--name", "Ann", "--bots", "0")
	require.NoError(t, err)
	code := roomCode(t, out)
	assert.Contains(t, out, "Ann created the game.")

	store, err := local.OpenSQLite(filepath.Join(dir, "numerus.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	stored, err := local.LoadRoom(context.Background(), store)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.RoomCode(code), stored.Code)
	require.Len(t, stored.Players, 1)
	assert.Equal(t, "Ann", stored.Players[0].Name)
	assert.Equal(t, 1, stored.Players[0].Score)
}

func TestPlayResumesSavedGame(t *testing.T) {
	t.Setenv("NUMERUS_SERVER", "")
	dir := t.TempDir()

	out, err := runCLI(t, "/quit\n", "--state-dir", dir, "play", "--name", "Ann", "--bots", "1", "--difficulty", "hard")
	require.NoError(t, err)
	code := roomCode(t, out)

	out, err = runCLI(t, "Bob\n/quit\n", "--state-dir", dir, "play", "--code", strings.ToLower(code))
	require.NoError(t, err)
	assert.Contains(t, out, "Your name: ")
	assert.Contains(t, out, "Bob joined the game.")
	assert.Contains(t, out, "(hard)")

	store, err := local.OpenSQLite(filepath.Join(dir, "numerus.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	stored, err := local.LoadRoom(context.Background(), store)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Players, 3)
	assert.Equal(t, model.DifficultyHard, stored.Difficulty)
}

func TestPlayResumeAddsRequestedBots(t *testing.T) {
	t.Setenv("NUMERUS_SERVER", "")
	dir := t.TempDir()

	out, err := runCLI(t, "/quit\n", "--state-dir", dir, "play", "--name", "Ann")
	require.NoError(t, err)
	code := roomCode(t, out)

	_, err = runCLI(t, "/quit\n", "--state-dir", dir, "play", "--code", code, "--name", "Bob", "--bots", "2")
	require.NoError(t, err)

	store, err := local.OpenSQLite(filepath.Join(dir, "numerus.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	stored, err := local.LoadRoom(context.Background(), store)
	require.NoError(t, err)
	require.NotNil(t, stored)
	bots := 0
	for _, p := range stored.Players {
		if p.IsBot {
			bots++
		}
	}
	assert.Len(t, stored.Players, 5)
	assert.Equal(t, 3, bots)
}

func TestPlayUnknownCode(t *testing.T) {
	t.Setenv("NUMERUS_SERVER", "")

	_, err := runCLI(t, "", "--state-dir", t.TempDir(), "play", "--name", "Ann", "--code", "ZZZZ22")
	assert.ErrorIs(t, err, model.ErrRoomNotFound)
}

func TestPlayRejectsBadDifficulty(t *testing.T) {
	t.Setenv("NUMERUS_SERVER", "")

	_, err := runCLI(t, "", "--state-dir", t.TempDir(), "play", "--name", "Ann", "--difficulty", "brutal")
	assert.ErrorIs(t, err, model.ErrInvalidDifficulty)
}

func TestOnlineNeedsServer(t *testing.T) {
	t.Setenv("NUMERUS_SERVER", "")

	_, err := runCLI(t, "", "--state-dir", t.TempDir(), "online", "create", "--name", "Ann")
	assert.ErrorIs(t, err, model.ErrBackendUnavailable)

	_, err = runCLI(t, "", "health")
	assert.ErrorIs(t, err, errServerRequired)
}

func TestHealth(t *testing.T) {
	url := startServer(t)

	out, err := runCLI(t, "", "--server", url, "health")
	require.NoError(t, err)
	assert.Equal(t, "Server status: ok\n", out)
}

func TestOnlineCreateThenInspect(t *testing.T) {
	url := startServer(t)
	dir := t.TempDir()

	out, err := runCLI(t, "/quit\n", "--server", url, "--api-key", "cli-key", "--state-dir", dir,
		"online", "create", "--name", "Ann", "--difficulty", "easy")
	require.NoError(t, err)
	code := roomCode(t, out)

	out, err = runCLI(t, "", "--server", url, "--api-key", "cli-key", "-o", "json", "room", "get", code)
	require.NoError(t, err)

	var result RoomResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, model.RoomCode(code), result.Room.Code)
	assert.Equal(t, model.DifficultyEasy, result.Room.Difficulty)
	require.Len(t, result.Players, 1)
	assert.Equal(t, "Ann", result.Players[0].Name)
	assert.True(t, result.Players[0].IsOwner)

	store, err := local.OpenSQLite(filepath.Join(dir, "numerus.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	seat, err := local.LoadOnlineSession(context.Background(), store)
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, result.Room.ID, seat.RoomID)
	assert.Equal(t, result.Players[0].ID, seat.PlayerID)
}

func TestOnlineResumeTakesBackSeat(t *testing.T) {
	url := startServer(t)
	dir := t.TempDir()

	out, err := runCLI(t, "/quit\n", "--server", url, "--api-key", "cli-key", "--state-dir", dir,
		"online", "create", "--name", "Ann")
	require.NoError(t, err)
	code := roomCode(t, out)

	out, err = runCLI(t, "/quit\n", "--server", url, "--api-key", "cli-key", "--state-dir", dir, "online", "resume")
	require.NoError(t, err)
	assert.Equal(t, code, roomCode(t, out))
	assert.NotContains(t, out, "Your name: ")
}

func TestRoomGetWrongKey(t *testing.T) {
	url := startServer(t)

	_, err := runCLI(t, "", "--server", url, "--api-key", "nope", "room", "get", "ABCDEF")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrTransientWrite)
}
