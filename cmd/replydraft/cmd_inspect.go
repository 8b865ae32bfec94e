package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"replydraft/internal/detector"
	"replydraft/internal/dom"
	"replydraft/internal/model"
	"replydraft/internal/orchestrator"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Run the reply detector on a saved HTML page",
	Long: `Parses FILE (for example one written by "replydraft snapshot") and prints
the reply the detector would give to CHECK_REPLY_CONTEXT. Use "-" for stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot FILE",
	Short: "Save the webmail tab's HTML with visibility and focus annotations",
	Long: `Writes the live DOM of the webmail tab to FILE, marking which elements
are visible and which one has focus, so "replydraft inspect" can replay
detection offline. Use "-" for stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func runInspect(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		in = f
	}

	page, err := dom.ParseHTML(in)
	if err != nil {
		return err
	}
	d := detector.New(page, nil,
		detector.WithLogger(logger),
		detector.WithSanitizeLimit(cfg.Detector.SanitizeLimit))
	defer d.Close()

	reply, err := d.HandleQuery(cmd.Context(), model.CheckReplyContext())
	if err != nil {
		return err
	}
	return writeReply(cmd.OutOrStdout(), reply)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	tabID, ok, err := a.session.ActiveWebmailTab(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return orchestrator.ErrNoWebmailTab
	}
	html, err := a.session.Snapshot(ctx, tabID)
	if err != nil {
		return err
	}

	if args[0] == "-" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.WriteFile(args[0], []byte(html), 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", args[0])
	return nil
}
