package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/memonotes/internal/notes"
)

// NewCategoriesCommand lists the categories in use.
func NewCategoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			cats, err := a.repo.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
	return cmd
}

// NewWatchCommand prints the filtered note list every time it changes until interrupted.
func NewWatchCommand() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the note list whenever it changes",
		Long: `Follow every note with its tags, filtered by --filter across title, content,
category and tag names. A new listing is printed after each change until the
command is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			session := notes.NewSession(ctx, a.repo, a.cfg.Session.MaxWorkers)
			defer session.Close()
			session.UpdateSearchQuery(filter)

			sub := session.NotesWithTags().Subscribe()
			defer sub.Close()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case snap, ok := <-sub.C():
					if !ok {
						return nil
					}
					if snap.Err != nil {
						return snap.Err
					}
					fmt.Fprintf(out, "--- %d notes (%s) ---\n", len(snap.Value), session.Composer().Mode())
					printNotesWithTags(out, snap.Value)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Filter text")

	return cmd
}
