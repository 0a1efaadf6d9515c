package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gopherai-rag/internal/rag"
)

func newIngestCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE",
		Short: "Chunk, embed and store a document",
		Long: `Ingest a PDF, or a plain text or markdown file (.txt, .md).

Examples:
  ragctl ingest handbook.pdf
  ragctl ingest notes.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			return withPipeline(cmd, open, func(ctx context.Context, p Pipeline) error {
				var res *rag.IngestResult
				switch strings.ToLower(filepath.Ext(path)) {
				case ".txt", ".md":
					res, err = p.IngestText(ctx, string(data))
				default:
					res, err = p.IngestFile(ctx, data)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %d chunks from %s\n", res.ChunksStored, filepath.Base(path))
				return nil
			})
		},
	}
}

func newEmbedCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "embed TEXT",
		Short: "Store TEXT as a single chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd, open, func(ctx context.Context, p Pipeline) error {
				id, err := p.EmbedText(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}
