package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/playarena/chat-sync/internal/application/chatsync"
	"github.com/playarena/chat-sync/internal/domain/chat"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Inspect and start conversations",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations with unread counts and receipts",
	Args:  cobra.NoArgs,
	RunE:  runChatsList,
}

var chatsOpenWithCmd = &cobra.Command{
	Use:   "open-with <user-id>",
	Short: "Create or fetch the conversation with a user and print its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsOpenWith,
}

var connectWait time.Duration

func init() {
	chatsCmd.AddCommand(chatsListCmd)
	chatsCmd.AddCommand(chatsOpenWithCmd)

	chatsCmd.PersistentFlags().DurationVar(&connectWait, "connect-wait", 5*time.Second, "How long to wait for the push connection")
}

func runChatsList(cmd *cobra.Command, _ []string) error {
	return withController(cmd, func(ctx context.Context, c *chatsync.Controller) error {
		if err := c.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		printDirectory(os.Stdout, c.Snapshot())
		return nil
	})
}

func runChatsOpenWith(cmd *cobra.Command, args []string) error {
	return withController(cmd, func(ctx context.Context, c *chatsync.Controller) error {
		waitConnected(ctx, c, connectWait)
		conv, messages, err := c.OpenWithUser(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("→ conversation %s\n\n", conv.ID)
		for _, msg := range messages {
			printMessage(os.Stdout, msg)
		}
		return c.Close(ctx)
	})
}

// withController runs fn against a started controller and stops it afterwards.
func withController(cmd *cobra.Command, fn func(ctx context.Context, c *chatsync.Controller) error) error {
	ctx := cmd.Context()
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	controller, err := newController(cfg, log)
	if err != nil {
		return err
	}
	controller.Start(ctx)
	defer controller.Stop()
	return fn(ctx, controller)
}

// waitConnected blocks until the push channel is up or the wait elapses.
// Commands still work without it, only without live updates.
func waitConnected(ctx context.Context, c *chatsync.Controller, wait time.Duration) bool {
	if c.State() != chatsync.StateDisconnected {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return false
		case update := <-c.Updates():
			if update.State != chatsync.StateDisconnected {
				return true
			}
		}
	}
}

func printDirectory(w io.Writer, snap chatsync.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWITH\tUNREAD\tLAST MESSAGE\tRECEIPT")
	for _, view := range snap.Conversations {
		with := "-"
		if other, ok := view.Counterpart(snap.UserID); ok {
			with = other.DisplayName
			if with == "" {
				with = other.ID
			}
		}
		last := ""
		if view.LastMessage != nil {
			last = truncate(view.LastMessage.Content, 40)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", view.ID, with, view.Unread, last, view.Receipt.Status)
	}
	_ = tw.Flush()
}

func printMessage(w io.Writer, msg chat.Message) {
	name := msg.Sender.DisplayName
	if name == "" {
		name = msg.Sender.ID
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04:05"), name, msg.Content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
