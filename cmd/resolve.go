package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/ingest"
	"github.com/spf13/cobra"
)

var pushResolved bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [event.json]",
	Short: "Resolve one host event against the profiles and print its payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.LoadDir(cfg.Profiles.Dir)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		ev, err := ingest.ParseEvent(data)
		if err != nil {
			return err
		}
		resolved, err := eng.Resolve(ev)
		if err != nil {
			return err
		}
		if resolved == nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "no screen matched")
			fmt.Fprintln(cmd.OutOrStdout(), "null")
			return nil
		}
		payload := engine.Envelope(ev, resolved)
		body, err := payload.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))

		if !pushResolved {
			return nil
		}
		q, err := openQueue(cfg, logger)
		if err != nil {
			return err
		}
		name, err := q.Enqueue(payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "queued %s\n", name)
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay [events.db]",
	Short: "Resolve every recorded event and queue the new payloads",
	Long: `Replay reads the events table of a SQLite database in insertion order,
resolves each event and pushes the payloads through the duplicate filter
into the upload queue.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.LoadDir(cfg.Profiles.Dir)
		if err != nil {
			return err
		}
		p, err := openPipeline(cfg, logger, false)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		var resolved, unknown, skipped int
		ctx := cmd.Context()
		err = ingest.StreamEvents(args[0], func(id int64, ev ingest.Event) error {
			data, err := eng.Resolve(ev)
			if errors.Is(err, engine.ErrNoProfile) || (err == nil && data == nil) {
				unknown++
				return nil
			}
			if err != nil {
				return fmt.Errorf("event %d: %w", id, err)
			}
			resolved++
			p.dedup.Push(ctx, engine.Envelope(ev, data))
			return nil
		}, func(id int64, err error) {
			skipped++
			logger.Warn("skipping unreadable event", "id", id, "error", err)
		})
		if err != nil {
			return err
		}
		queued, err := p.queue.Len()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "resolved %d, unknown %d, skipped %d, queued %d\n",
			resolved, unknown, skipped, queued)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&pushResolved, "push", false, "Also write the payload to the upload queue")
	rootCmd.AddCommand(resolveCmd, replayCmd)
}
