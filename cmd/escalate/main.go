// Command escalate runs the escalation decision engine from the terminal:
// one-shot scoring, an interactive chat loop, batch replay of recorded
// conversations, and state management.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
