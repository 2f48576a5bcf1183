// Command odincode is the CLI dispatcher for OdinCode's core: an
// interactive chat mode, a one-shot plan execution mode, and an
// evidence-query mode, following tarsy's
// cmd/tarsy/main.go startup-banner-then-services pattern but dispatched
// through spf13/cobra subcommands (grounded on vanducng-goclaw/cmd/root.go)
// rather than tarsy's single-binary flag.Parse.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
