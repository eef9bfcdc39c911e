package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sokinpui/patchsync/internal/ui"
	"github.com/sokinpui/patchsync/patchsync"
)

func newFilesCmd(rt *runtime) *cobra.Command {
	var repo, commit string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files a commit changed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := rt.app.ChangedFiles(cmd.Context(), repo, commit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"files": files})
			}
			ui.PrintChangedFiles(cmd.OutOrStdout(), files)
			return nil
		},
	}
	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository containing the commit")
	cmd.Flags().StringVarP(&commit, "commit", "c", "HEAD", "commit id or revision")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newShowCmd(rt *runtime) *cobra.Command {
	var repo, commit, file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a file before and after a commit, formatted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := rt.app.FileContent(cmd.Context(), repo, commit, file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, content)
			}
			fmt.Fprintf(out, "--- %s (before, %s)\n%s\n", content.FilePath, content.Language, content.OldContent)
			fmt.Fprintf(out, "+++ %s (after, %s)\n%s\n", content.FilePath, content.Language, content.NewContent)
			return nil
		},
	}
	cmd.Flags().StringVarP(&repo, "repo", "r", ".", "repository containing the commit")
	cmd.Flags().StringVarP(&commit, "commit", "c", "HEAD", "commit id or revision")
	cmd.Flags().StringVarP(&file, "file", "f", "", "repository-relative file path (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file]",
		Short: "Tighten whitespace inside ${...} template interpolations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), patchsync.Normalize(string(data)))
			return err
		},
	}
}
