package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"replydraft/internal/model"
)

var (
	setAPIKey     string
	setSender     string
	setPrompt     string
	setPromptFile string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored API key, sender name and reply style",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings with the API key masked",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change stored settings; only the flags given are updated",
	Example: `  replydraft settings set --api-key sk-... --sender "Taro Yamada"
  replydraft settings set --prompt-file style.txt`,
	Args: cobra.NoArgs,
	RunE: runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().StringVar(&setAPIKey, "api-key", "", "OpenAI API key")
	settingsSetCmd.Flags().StringVar(&setSender, "sender", "", "Name used to sign replies")
	settingsSetCmd.Flags().StringVar(&setPrompt, "prompt", "", "Reply style instructions")
	settingsSetCmd.Flags().StringVar(&setPromptFile, "prompt-file", "", "Read the reply style from a file")
	settingsSetCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.LoadSettings(cmd.Context())
	if err != nil {
		return err
	}
	printSettings(cmd.OutOrStdout(), s, cfg.LLM.APIKey)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	s, err := db.LoadSettings(ctx)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api-key") {
		s.APIKey = setAPIKey
	}
	if flags.Changed("sender") {
		s.SenderName = setSender
	}
	if flags.Changed("prompt") {
		s.Prompt = setPrompt
	}
	if flags.Changed("prompt-file") {
		b, err := os.ReadFile(setPromptFile)
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}
		s.Prompt = string(b)
	}

	if err := db.SaveSettings(ctx, s); err != nil {
		return err
	}
	saved, err := db.LoadSettings(ctx)
	if err != nil {
		return err
	}
	printSettings(cmd.OutOrStdout(), saved, cfg.LLM.APIKey)
	return nil
}

func printSettings(w io.Writer, s model.Settings, envKey string) {
	key := maskKey(s.APIKey)
	if s.APIKey == "" && envKey != "" {
		key = maskKey(envKey) + " (from OPENAI_API_KEY)"
	}
	fmt.Fprintf(w, "API key:     %s\n", key)
	fmt.Fprintf(w, "Sender name: %s\n", orDash(s.SenderName))
	fmt.Fprintf(w, "Reply style:\n%s\n", indent(s.Prompt))
}

// maskKey keeps the last four characters of key.
func maskKey(key string) string {
	if key == "" {
		return "-"
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
