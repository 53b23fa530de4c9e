package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/session"
)

func newOnlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "online",
		Short: "Play online through a numerus server",
	}

	cmd.AddCommand(newOnlineCreateCmd())
	cmd.AddCommand(newOnlineJoinCmd())
	cmd.AddCommand(newOnlineResumeCmd())

	return cmd
}

func newOnlineCreateCmd() *cobra.Command {
	var name, difficulty string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an online room and share its code",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := model.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}
			return runOnline(cmd, name, func(sess *session.Session) error {
				if err := sess.BeginCreate(session.ModeRemote); err != nil {
					return err
				}
				return sess.ChangeDifficulty(cmd.Context(), level)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name (prompted if empty)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "normal", "Difficulty: easy, normal, hard")

	return cmd
}

func newOnlineJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join an online room by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnline(cmd, name, func(sess *session.Session) error {
				if err := sess.BeginJoin(session.ModeRemote); err != nil {
					return err
				}
				return sess.SubmitJoinCode(cmd.Context(), args[0])
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name (prompted if empty)")

	return cmd
}

func newOnlineResumeCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "resume [room-id]",
		Short: "Go back to an online room",
		Long: `Reconnect to an online room. Without a room id the last online room is used.
If your seat is still there you take it back; otherwise you join again.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnline(cmd, name, func(sess *session.Session) error {
				roomID := model.RoomID("")
				if len(args) == 1 {
					roomID = model.RoomID(args[0])
				} else if seat := sess.OnlineSession(); seat != nil {
					roomID = seat.RoomID
				}
				if roomID == "" {
					return errors.New("no online room to resume; pass a room id")
				}
				return sess.Rehydrate(cmd.Context(), roomID)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name if you have to join again")

	return cmd
}

// runOnline opens a session, runs setup and then asks for a name if the session
// is waiting for one
func runOnline(cmd *cobra.Command, name string, setup func(*session.Session) error) error {
	if cfg.ServerURL == "" {
		return fmt.Errorf("%w: %w", model.ErrBackendUnavailable, errServerRequired)
	}

	sess, cleanup, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := setup(sess); err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if sess.Screen() == session.ScreenUsername {
		name, err := prompt(in, out, "Your name: ", name)
		if err != nil {
			return err
		}
		if _, err := sess.SubmitUsername(cmd.Context(), name); err != nil {
			return err
		}
	}

	state := sess.State()
	_, _ = fmt.Fprintf(out, "Room code %s (room id %s). Share the code so others can join.\n", state.Code, state.RoomID)
	return NewGame(sess, in, out).Run(cmd.Context())
}
