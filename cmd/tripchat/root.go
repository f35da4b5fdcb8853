package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaot623/tripchat/internal/adapter/chatclient"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "tripchat",
	Short: "Chat with the Montreal trip assistant",
	Long: `A terminal client for the tripchat server.

Quick Start:
  tripchat health                 # Check the server is up
  tripchat new-session            # Print a fresh session id
  tripchat chat                   # Start chatting in a new session
  tripchat chat --session <id>    # Resume a session`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TRIPCHAT_SERVER", "http://localhost:8000"), "tripchat server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
}

func newClient() *chatclient.Client {
	return chatclient.NewClient(serverURL, timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
