package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/numerus/internal/client"
	"github.com/mcoot/numerus/internal/dependencies/clock"
	"github.com/mcoot/numerus/internal/dependencies/random"
	"github.com/mcoot/numerus/internal/services/session"
	"github.com/mcoot/numerus/internal/storage/local"
)

// errServerRequired is returned by commands that only talk to the server
var errServerRequired = errors.New("--server is required (env: NUMERUS_SERVER)")

func newAPIClient(cmd *cobra.Command) (*client.Client, error) {
	if cfg.ServerURL == "" {
		return nil, errServerRequired
	}
	return client.New(client.Config{BaseURL: cfg.ServerURL, APIKey: cfg.APIKey}, cfg.Logger(cmd.ErrOrStderr())), nil
}

// openSession opens the saved state and builds a session. Online play is
// available only when a server is configured.
func openSession(cmd *cobra.Command) (*session.Session, func(), error) {
	store, err := local.OpenSQLite(cfg.StorePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open saved state: %w", err)
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	deps := session.Dependencies{
		Clock:  clock.New(),
		Random: random.New(),
		Store:  store,
		Logger: logger,
	}
	if cfg.ServerURL != "" {
		deps.Backend = client.New(client.Config{BaseURL: cfg.ServerURL, APIKey: cfg.APIKey}, logger)
	}

	sess, err := session.New(cmd.Context(), session.DefaultConfig(), deps)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	cleanup := func() {
		sess.Close()
		_ = store.Close()
	}
	return sess, cleanup, nil
}

// prompt asks for a line of input when value is empty
func prompt(in *bufio.Reader, out io.Writer, question, value string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	_, _ = fmt.Fprint(out, question)
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("no input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
