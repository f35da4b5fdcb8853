package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/tripchat/internal/adapter/chatclient"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/protocol"
)

var (
	chatSession string
	chatLat     float64
	chatLon     float64
	showEvents  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Open a WebSocket to the server and chat interactively.

Tool calls are printed as the assistant makes them. Type /quit to exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if err := client.Connect(cmd.Context(), chatSession); err != nil {
			return err
		}
		defer client.Close()

		fmt.Println(successStyle.Render("Connected"), infoStyle.Render("session "+client.SessionID()))
		fmt.Println(infoStyle.Render("Type a message and press Enter. /quit to exit."))

		var loc *domain.UserLocation
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			loc = &domain.UserLocation{Latitude: chatLat, Longitude: chatLon}
		}
		return repl(cmd.Context(), client, loc)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session id to resume (default: new session)")
	chatCmd.Flags().Float64Var(&chatLat, "lat", 0, "Your latitude")
	chatCmd.Flags().Float64Var(&chatLon, "lon", 0, "Your longitude")
	chatCmd.Flags().BoolVar(&showEvents, "events", false, "Print every step event, not only tool calls")
	rootCmd.AddCommand(chatCmd)
}

func repl(ctx context.Context, client *chatclient.Client, loc *domain.UserLocation) error {
	frames := make(chan *chatclient.Frame)
	readErr := make(chan error, 1)
	go func() {
		for {
			frame, err := client.Next()
			if err != nil {
				readErr <- err
				return
			}
			frames <- frame
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Bye!")
			return nil
		}

		if err := client.Send(input, loc); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		if err := awaitReply(ctx, frames, readErr); err != nil {
			return err
		}
	}
}

// awaitReply prints frames until the turn ends.
func awaitReply(ctx context.Context, frames <-chan *chatclient.Frame, readErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return fmt.Errorf("connection closed: %w", err)
		case frame := <-frames:
			switch frame.Type {
			case protocol.TypeEvent:
				printEvent(frame.Event)
			case protocol.TypeDone:
				printAnswer(frame.Messages, frame.Truncated)
				return nil
			case protocol.TypeError:
				fmt.Println(errorStyle.Render("error:"), frame.Message)
				if n := len(frame.Messages); n > 0 {
					fmt.Println(assistantStyle.Render("assistant:"), frame.Messages[n-1].Content)
				}
				return nil
			}
		}
	}
}

func printEvent(event *domain.Event) {
	if event == nil {
		return
	}
	switch event.Type {
	case domain.EventTypeToolCallStarted:
		var p domain.ToolCallStartedPayload
		if json.Unmarshal(event.Payload, &p) == nil {
			fmt.Println(toolStyle.Render(fmt.Sprintf("  ↳ %s %s", p.ToolName, string(p.Args))))
		}
	case domain.EventTypeToolCallDone:
		var p domain.ToolCallDonePayload
		if json.Unmarshal(event.Payload, &p) == nil && p.Error != "" {
			fmt.Println(toolStyle.Render(fmt.Sprintf("  ✗ %s: %s", p.ToolName, p.Error)))
		}
	default:
		if showEvents {
			fmt.Println(toolStyle.Render(fmt.Sprintf("  · %s %s", event.Type, string(event.Payload))))
		}
	}
}

func printAnswer(messages []domain.Message, truncated bool) {
	if n := len(messages); n > 0 {
		fmt.Println(assistantStyle.Render("assistant:"), messages[n-1].Content)
	}
	if truncated {
		fmt.Println(toolStyle.Render("  (stopped after the tool-call limit)"))
	}
}
