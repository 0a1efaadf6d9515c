package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gopherai-rag/internal/rag"
)

func newAskCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "ask QUERY",
		Short: "Answer a question from the stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withPipeline(cmd, open, func(ctx context.Context, p Pipeline) error {
				answer, err := p.Answer(ctx, query, nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			})
		},
	}
}

func newWelcomeCmd(open Opener) *cobra.Command {
	var (
		name string
		at   string
	)
	cmd := &cobra.Command{
		Use:   "welcome",
		Short: "Print the welcome message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := rag.WelcomeRequest{Name: name}
			if at != "" {
				t, err := time.Parse("15:04", at)
				if err != nil {
					return fmt.Errorf("--at must be HH:MM: %w", err)
				}
				now := time.Now()
				req.Now = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
			}
			return withPipeline(cmd, open, func(ctx context.Context, p Pipeline) error {
				msg, err := p.Welcome(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name to greet")
	cmd.Flags().StringVar(&at, "at", "", "Local time of day to greet for (HH:MM)")
	return cmd
}
