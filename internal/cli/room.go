package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/numerus/internal/model"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Inspect online rooms",
	}

	cmd.AddCommand(newRoomGetCmd())

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show an online room and its players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPIClient(cmd)
			if err != nil {
				return err
			}

			room, err := api.GetRoomByCode(cmd.Context(), model.NormalizeRoomCode(args[0]))
			if err != nil {
				return err
			}
			players, err := api.ListPlayers(cmd.Context(), room.ID)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(RoomResult{Room: *room, Players: players})
			return nil
		},
	}
}
