package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/triagelab/escalate/escalate/engine"
)

func newScoreCmd() *cobra.Command {
	var (
		conversationID string
		role           string
		message        string
		prevBot        string
		fromStdin      bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Decide one turn and print the decision as JSON",
		Example: `  escalate score --conversation c1 --role user --message "I want a real person"
  echo '{"conversation_id":"c1","role":"user","message":"help"}' | escalate score --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.Close()

			var turn engine.Turn
			if fromStdin {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				if err := json.Unmarshal(data, &turn); err != nil {
					return fmt.Errorf("parse turn: %w", err)
				}
			} else {
				turn = engine.Turn{
					ConversationID: conversationID,
					Role:           role,
					Message:        message,
					PrevBotText:    prevBot,
				}
			}

			decision, err := rt.arbiter.Decide(cmd.Context(), turn)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(decision, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation id")
	cmd.Flags().StringVarP(&role, "role", "r", "user", "turn role (user or bot)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "turn message text")
	cmd.Flags().StringVar(&prevBot, "prev-bot", "", "previous bot message, for user turns")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the turn as JSON from stdin")

	return cmd
}
