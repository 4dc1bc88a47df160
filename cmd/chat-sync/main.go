package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/playarena/chat-sync/internal/config"
	"github.com/playarena/chat-sync/internal/infrastructure/logger"
)

var version = "0.1.0"

func main() {
	loadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chat-sync",
	Short: "Real-time chat synchronization engine",
	Long: `chat-sync keeps a local view of a user's conversations in step with the
chat service: the conversation directory, the open conversation's messages
and read receipts, over REST snapshots and a websocket push channel.

Examples:
  # Run the engine with the local HTTP bridge
  chat-sync serve

  # One-shot directory listing
  chat-sync chats list

  # Follow a conversation and send stdin lines to it
  chat-sync tail 64f1c0ffee`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(tailCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")
}

// loadConfig reads configuration and builds the process logger.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, logger.New(cfg), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
