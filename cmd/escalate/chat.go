package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/triagelab/escalate/escalate/engine"
)

func newChatCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive decision loop",
		Long: `Feeds typed turns through the engine one at a time and prints each
verdict. Prefix a line with "user:" or "bot:" to set the role; unprefixed
lines are user turns. Type "examples" for sample inputs, "stats" for the
conversation's rolling state, "reset" to clear it, "quit" to exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.Close()

			if conversationID == "" {
				conversationID = uuid.New().String()
			}

			fmt.Printf("conversation %s (policy %s)\n", conversationID, rt.cfg.Version)
			fmt.Println(`type a message ("user: ..." or "bot: ..."), or: examples | stats | reset | quit`)

			var prevBot string
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())

				switch line {
				case "":
					continue
				case "quit", "exit":
					return nil
				case "reset":
					if err := rt.arbiter.Reset(cmd.Context(), conversationID); err != nil {
						fmt.Printf("reset failed: %v\n", err)
						continue
					}
					prevBot = ""
					fmt.Println("conversation reset")
					continue
				case "stats":
					st, err := rt.arbiter.State(cmd.Context(), conversationID)
					if err != nil {
						fmt.Printf("stats failed: %v\n", err)
						continue
					}
					fmt.Printf("user_turns=%d no_progress=%.0f bot_repeat=%.0f\n",
						st.UserTurnIdx, st.NoProgressCount, st.BotRepeatCount)
					if st.PrevBotText != "" {
						fmt.Printf("last bot message: %q\n", st.PrevBotText)
					}
					continue
				case "examples":
					printExamples()
					continue
				}

				role := engine.RoleUser
				message := line
				switch {
				case strings.HasPrefix(line, "user:"):
					message = strings.TrimSpace(strings.TrimPrefix(line, "user:"))
				case strings.HasPrefix(line, "bot:"):
					role = engine.RoleBot
					message = strings.TrimSpace(strings.TrimPrefix(line, "bot:"))
				}

				turn := engine.Turn{
					ConversationID: conversationID,
					Role:           role,
					Message:        message,
					PrevBotText:    prevBot,
				}
				decision, err := rt.arbiter.Decide(cmd.Context(), turn)
				if err != nil {
					fmt.Printf("error: %v\n", err)
					continue
				}
				if role == engine.RoleBot {
					prevBot = message
				}

				printDecision(decision)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation id (random when omitted)")

	return cmd
}

func printDecision(d engine.Decision) {
	verdict := "CONTINUE"
	if d.Escalate {
		verdict = "ESCALATE"
	}

	score := "-"
	if d.Score != nil {
		score = fmt.Sprintf("%.3f", *d.Score)
	}

	fmt.Printf("%s  [%s] score=%s  %s\n", verdict, d.Source, score, d.Reason)
	if len(d.FiredRules) > 0 {
		fmt.Printf("  fired: %s\n", strings.Join(d.FiredRules, ", "))
	}
	fmt.Printf("  state: user_turns=%d no_progress=%.0f bot_repeat=%.0f\n",
		d.State.UserTurnIdx, d.State.NoProgressCount, d.State.BotRepeatCount)
}

func printExamples() {
	fmt.Println(`examples:
  user: I want to talk to a human
  user: my card got blocked and I need KYC help
  user: WHY IS THIS NOT WORKING!!!
  bot: could you provide more details
  user: I already told you everything`)
}
