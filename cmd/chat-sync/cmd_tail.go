package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/playarena/chat-sync/internal/application/chatsync"
	"github.com/playarena/chat-sync/internal/domain/chat"
)

var tailCmd = &cobra.Command{
	Use:   "tail <conversation-id>",
	Short: "Follow a conversation and send lines read from stdin",
	Long: `Opens the conversation, prints its history and then every new message as it
arrives. Each non-empty line typed on stdin is sent to the conversation.
Exit with Ctrl+C or end of input.`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

var tailReadOnly bool

func init() {
	tailCmd.Flags().BoolVar(&tailReadOnly, "read-only", false, "Do not read stdin")
	tailCmd.Flags().DurationVar(&connectWait, "connect-wait", 5*time.Second, "How long to wait for the push connection")
}

func runTail(cmd *cobra.Command, args []string) error {
	return withController(cmd, func(ctx context.Context, c *chatsync.Controller) error {
		if !waitConnected(ctx, c, connectWait) {
			fmt.Fprintln(os.Stderr, "warning: push channel not connected, history only until it comes up")
		}

		messages, err := c.Open(ctx, args[0])
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(messages))
		for _, msg := range messages {
			seen[msg.ID] = struct{}{}
			printMessage(os.Stdout, msg)
		}

		lines := make(chan string)
		if !tailReadOnly {
			go readLines(ctx, lines)
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if err := c.Send(ctx, line); err != nil {
					if errors.Is(err, chat.ErrNotConnected) {
						fmt.Fprintln(os.Stderr, "not connected, message dropped")
						continue
					}
					return err
				}
			case <-c.Updates():
				snap := c.Snapshot()
				if snap.OpenConversationID != args[0] {
					return nil
				}
				for _, msg := range snap.Messages {
					if _, ok := seen[msg.ID]; ok {
						continue
					}
					seen[msg.ID] = struct{}{}
					printMessage(os.Stdout, msg)
				}
			}
		}
	})
}

func readLines(ctx context.Context, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}
