package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <conversation-id>",
		Short: "Clear a conversation's rolling state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.arbiter.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("conversation %s reset\n", args[0])
			return nil
		},
	}
	return cmd
}
