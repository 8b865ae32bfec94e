package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"replydraft/internal/model"
	"replydraft/internal/orchestrator"
)

var (
	draftCopy  bool
	draftGmail bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask the webmail tab whether a reply is open and print the answer",
	Long: `Sends one CHECK_REPLY_CONTEXT query to the detector of the webmail tab,
injecting the detector first if needed, and prints the JSON reply.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate a draft for the open reply and print it with its cost",
	Args:  cobra.NoArgs,
	RunE:  runDraft,
}

func init() {
	draftCmd.Flags().BoolVar(&draftCopy, "copy", false, "Copy the draft to the clipboard")
	draftCmd.Flags().BoolVar(&draftGmail, "gmail", false, "Also save the draft in the Gmail thread")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	check, err := a.orch.CheckContext(ctx)
	if err != nil {
		return err
	}
	return writeReply(cmd.OutOrStdout(), model.CheckReply{
		HasReplyOpen: check.HasReplyOpen,
		Context:      check.Context,
	})
}

func runDraft(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, appOptions{gmail: draftGmail})
	if err != nil {
		return err
	}
	defer a.Close()

	gen, err := generateOnce(ctx, a.orch)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subject: %s\nTo: %s\n\n%s\n\n%s\n",
		gen.Context.Subject, gen.Context.LatestSender, gen.Draft.Text, gen.CostLine)

	if draftCopy {
		if err := clipboard.WriteAll(gen.Draft.Text); err != nil {
			return fmt.Errorf("copy draft: %w", err)
		}
		fmt.Fprintln(out, "Copied to clipboard.")
	}
	if draftGmail {
		id, err := a.orch.SaveGmailDraft(ctx, gen)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved Gmail draft %s.\n", id)
	}
	return nil
}

func generateOnce(ctx context.Context, orch *orchestrator.Orchestrator) (*orchestrator.Generation, error) {
	check, err := orch.CheckContext(ctx)
	if err != nil {
		return nil, err
	}
	if !check.HasReplyOpen || check.Context == nil {
		return nil, orchestrator.ErrNoContext
	}
	if !check.SettingsComplete {
		return nil, fmt.Errorf("%w: run `replydraft settings set`", orchestrator.ErrSettingsIncomplete)
	}
	return orch.Generate(ctx)
}

func writeReply(w io.Writer, reply model.CheckReply) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reply); err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return nil
}
