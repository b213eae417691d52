package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/triagelab/escalate/escalate/engine"
)

func newReplayCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "replay <turns.jsonl>",
		Short: "Replay recorded turns through the engine",
		Long: `Reads one JSON turn per line and decides each in order. Conversations
replay concurrently but turns within a conversation stay sequential, so the
rolling counters evolve exactly as they would have live. Decisions are
written to stdout as JSON lines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.Close()

			turns, err := readTurns(args[0])
			if err != nil {
				return err
			}

			// Group by conversation, preserving file order within each.
			byConv := make(map[string][]engine.Turn)
			var order []string
			for _, t := range turns {
				if _, seen := byConv[t.ConversationID]; !seen {
					order = append(order, t.ConversationID)
				}
				byConv[t.ConversationID] = append(byConv[t.ConversationID], t)
			}

			var (
				mu        sync.Mutex
				out       = bufio.NewWriter(os.Stdout)
				enc       = json.NewEncoder(out)
				escalated int
				total     int
			)
			defer out.Flush()

			p := pool.New().WithMaxGoroutines(workers).WithErrors()
			for _, convID := range order {
				convTurns := byConv[convID]
				p.Go(func() error {
					for _, t := range convTurns {
						d, err := rt.arbiter.Decide(cmd.Context(), t)
						if err != nil {
							return fmt.Errorf("conversation %s turn %s: %w", t.ConversationID, t.TurnID, err)
						}
						mu.Lock()
						total++
						if d.Escalate {
							escalated++
						}
						if err := enc.Encode(d); err != nil {
							mu.Unlock()
							return err
						}
						mu.Unlock()
					}
					return nil
				})
			}
			if err := p.Wait(); err != nil {
				return err
			}

			out.Flush()
			fmt.Fprintf(os.Stderr, "replayed %d turns across %d conversations, %d escalated\n",
				total, len(byConv), escalated)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "concurrent conversations")

	return cmd
}

func readTurns(path string) ([]engine.Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var turns []engine.Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var t engine.Turn
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		turns = append(turns, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}
