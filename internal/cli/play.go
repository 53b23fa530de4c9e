package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/session"
)

func newPlayCmd() *cobra.Command {
	var name, code, difficulty string
	var bots int

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a local game",
		Long: `Start a local game on this machine, or resume the saved one with --code.

Type a single letter to play it. Commands: /bot adds a bot, /restart starts a
new round, /exit leaves and forgets the game, /quit leaves and keeps it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := model.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}

			sess, cleanup, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if code != "" {
				if err := sess.BeginJoin(session.ModeLocal); err != nil {
					return err
				}
				if err := sess.SubmitJoinCode(ctx, code); err != nil {
					return err
				}
			} else {
				if err := sess.BeginCreate(session.ModeLocal); err != nil {
					return err
				}
				if err := sess.ChangeDifficulty(ctx, level); err != nil {
					return err
				}
			}

			name, err = prompt(in, out, "Your name: ", name)
			if err != nil {
				return err
			}
			if _, err := sess.SubmitUsername(ctx, name); err != nil {
				return err
			}

			// A resumed game keeps its seats unless bots were asked for
			if code != "" && !cmd.Flags().Changed("bots") {
				bots = 0
			}
			for i := 0; i < bots; i++ {
				bot, err := sess.AddBot(ctx)
				if err != nil {
					return err
				}
				if bot == nil {
					break
				}
			}

			state := sess.State()
			_, _ = fmt.Fprintf(out, "Room code %s. Use --code %s to come back to this game.\n", state.Code, state.Code)
			return NewGame(sess, in, out).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name (prompted if empty)")
	cmd.Flags().StringVar(&code, "code", "", "Code of the saved game to resume")
	cmd.Flags().StringVar(&difficulty, "difficulty", "normal", "Difficulty: easy, normal, hard")
	cmd.Flags().IntVar(&bots, "bots", 1, "Number of bots to add (a resumed game adds none unless set)")

	return cmd
}
