package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"amli-assistant/internal/domain"
	"amli-assistant/internal/usecase"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Start an interactive session against the same chat service the API uses.
Type /quit or send EOF to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	return chatLoop(cmd.Context(), a.chat, cmd.InOrStdin(), cmd.OutOrStdout())
}

type chatter interface {
	Handle(ctx context.Context, req usecase.Request) (domain.ChatResponse, error)
}

// chatLoop reads one message per line. After a password prompt the next line
// is sent as the password for that enrollment number.
func chatLoop(ctx context.Context, svc chatter, in io.Reader, out io.Writer) error {
	sessionID := uuid.NewString()
	scanner := bufio.NewScanner(in)
	pendingEnrollment := ""

	fmt.Fprintln(out, "AmLI assistant. Type /quit to exit.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		req := usecase.Request{Message: line, SessionID: sessionID}
		if pendingEnrollment != "" {
			req = usecase.Request{
				Message:      "Verify my certificate password",
				Intent:       "verify_password",
				SessionID:    sessionID,
				EnrollmentNo: pendingEnrollment,
				Password:     line,
			}
			pendingEnrollment = ""
		}

		resp, err := svc.Handle(ctx, req)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, resp.Response)
		if resp.FormURL != "" {
			fmt.Fprintf(out, "  form: %s\n", resp.FormURL)
		}
		if resp.DownloadURL != "" {
			fmt.Fprintf(out, "  download: %s\n", resp.DownloadURL)
		}
		if resp.Type == domain.TypeRequestPassword {
			pendingEnrollment = resp.EnrollmentNo
		}
	}
}
