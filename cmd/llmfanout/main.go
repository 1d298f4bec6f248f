// Command llmfanout dispatches a prompt to several LLM providers from the
// terminal. It reads defaults from the environment (a .env file is loaded if
// present) and prints the collected results as indented JSON.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/llmfanout/handler"
	"github.com/hupe1980/llmfanout/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "llmfanout",
	Short: "Dispatch one prompt to several LLM providers at once",
	Long: `llmfanout sends the same prompt to every listed provider concurrently
and prints the per-provider results as JSON.

Flags fall back to environment variables (USER_MESSAGE, PROVIDERS,
TEMPERATURE, JSON_TOOLS); a .env file in the working directory is
loaded automatically.

Examples:
  llmfanout --message "What is Go?" --providers openai,claude
  llmfanout --providers openai --tools '[{"name":"echo","description":"Echo","parameters":{"type":"object"}}]'`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("message", "", "user message (default: USER_MESSAGE)")
	rootCmd.Flags().String("providers", "", "comma-separated providers (default: PROVIDERS)")
	rootCmd.Flags().Float64("temperature", 0, "sampling temperature (default: TEMPERATURE)")
	rootCmd.Flags().String("tools", "", "tool definitions as JSON (default: JSON_TOOLS)")
	rootCmd.Flags().BoolP("verbose", "v", false, "log branch progress to stderr")
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	message, _ := cmd.Flags().GetString("message")
	providers, _ := cmd.Flags().GetString("providers")
	tools, _ := cmd.Flags().GetString("tools")
	verbose, _ := cmd.Flags().GetBool("verbose")

	event := handler.Event{
		Message:   message,
		JSONTools: json.RawMessage(tools),
	}

	if providers != "" {
		event.Providers = strings.Split(providers, ",")
	}

	if cmd.Flags().Changed("temperature") {
		temp, _ := cmd.Flags().GetFloat64("temperature")
		event.Temperature = &temp
	}

	logger := logging.Logger(logging.NoOpLogger{})
	if verbose {
		logger = logging.NewTextLogger(os.Stderr, slog.LevelDebug)
	}

	h := handler.New(func(o *handler.Options) {
		o.Logger = logger
	})

	out, err := h.Handle(cmd.Context(), event)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}
