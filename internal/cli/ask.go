package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/guide"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a free-text question",
	Long: `Stream a web-grounded answer to a question and list its sources.

Examples:
  museumradar ask "Where can I see the Night Watch?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&apiKey, "key", "", "AI key to use instead of the configured one")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer m.Close(s.ID)

	events, err := s.Orchestrator.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var last guide.Snapshot
	printed := 0
	for ev := range events {
		last = ev.Snapshot
		if len(last.FullText) > printed {
			fmt.Fprint(out, last.FullText[printed:])
			printed = len(last.FullText)
		}
		if ev.Err != nil {
			fmt.Fprintln(out)
			return fmt.Errorf("%s: %w", models.UserMessage(ev.Err), ev.Err)
		}
	}
	fmt.Fprintln(out)
	printSources(out, last.Sources)
	return nil
}
