package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/memonotes/internal/dateutil"
	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
)

// NewNoteCommand creates the note command group.
func NewNoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Create, list, search, edit and delete notes",
		Long: `Commands for working with notes.

Examples:
  notes note add "Grocery List" --content "eggs, milk" --category home
  notes note list --category home
  notes note search "grocery"
  notes note edit 3 --title "Groceries"
  notes note tags 3 1 2`,
	}

	cmd.AddCommand(newNoteAddCommand())
	cmd.AddCommand(newNoteListCommand())
	cmd.AddCommand(newNoteSearchCommand())
	cmd.AddCommand(newNoteShowCommand())
	cmd.AddCommand(newNoteEditCommand())
	cmd.AddCommand(newNoteDeleteCommand())
	cmd.AddCommand(newNoteTagsCommand())

	return cmd
}

func newNoteAddCommand() *cobra.Command {
	var (
		content  string
		category string
		tagIDs   []int64
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			note := &models.Note{Title: args[0], Content: content, Category: category}
			id, err := a.repo.InsertNoteWithTags(cmd.Context(), note, tagIDs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created note %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "Note body")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().Int64SliceVarP(&tagIDs, "tag", "t", nil, "Tag id to attach (repeatable)")

	return cmd
}

func newNoteListCommand() *cobra.Command {
	var (
		category string
		tagID    int64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List notes, newest first",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var list []models.Note
			switch {
			case category != "":
				list, err = a.repo.ListNotesByCategory(ctx, category)
			case tagID > 0:
				list, err = a.repo.ListNotesWithTag(ctx, tagID)
			default:
				list, err = a.repo.ListNotes(ctx)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			printNotes(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only notes in this category")
	cmd.Flags().Int64Var(&tagID, "tag", 0, "Only notes carrying this tag id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newNoteSearchCommand() *cobra.Command {
	var (
		withTags bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find notes whose title or content contains text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if withTags {
				found, err := a.repo.FindNotesWithTags(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), found)
				}
				printNotesWithTags(cmd.OutOrStdout(), found)
				return nil
			}

			found, err := a.repo.FindNotes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), found)
			}
			printNotes(cmd.OutOrStdout(), found)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withTags, "with-tags", false, "Include each note's tags")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newNoteShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <note-id>",
		Short: "Show a note with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("note", args[0])
			if err != nil {
				return err
			}
			n, err := a.repo.GetNoteWithTags(cmd.Context(), id)
			if err != nil {
				return err
			}
			if n == nil {
				return errors.Newf(errors.ErrNoteNotFound, "note %d not found", id)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), n)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s\n", n.Note.ID, n.Note.Title)
			if n.Note.Category != "" {
				fmt.Fprintf(out, "Category: %s\n", n.Note.Category)
			}
			fmt.Fprintf(out, "Created:  %s\n", dateutil.FormatDateTime(n.Note.CreatedAt))
			fmt.Fprintf(out, "Updated:  %s\n", dateutil.FormatDateTime(n.Note.UpdatedAt))
			if len(n.Tags) > 0 {
				fmt.Fprintf(out, "Tags:     %s\n", joinTagNames(n.Tags))
			}
			if n.Note.Content != "" {
				fmt.Fprintf(out, "\n%s\n", n.Note.Content)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newNoteEditCommand() *cobra.Command {
	var (
		title    string
		content  string
		category string
	)

	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Change a note's title, content or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("note", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			note, err := a.repo.GetNoteByID(ctx, id)
			if err != nil {
				return err
			}
			if note == nil {
				return errors.Newf(errors.ErrNoteNotFound, "note %d not found", id)
			}

			flags := cmd.Flags()
			if flags.Changed("title") {
				note.Title = title
			}
			if flags.Changed("content") {
				note.Content = content
			}
			if flags.Changed("category") {
				note.Category = category
			}
			if err := a.repo.UpdateNote(ctx, note); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated note %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "New body")
	cmd.Flags().StringVar(&category, "category", "", "New category")

	return cmd
}

func newNoteDeleteCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "rm [note-id]",
		Short:   "Delete a note, or every note with --all",
		Aliases: []string{"delete"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if all {
				n, err := a.repo.DeleteAllNotes(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d notes\n", n)
				return nil
			}
			if len(args) != 1 {
				return errors.New(errors.ErrInvalid, "a note id or --all is required")
			}
			id, err := parseID("note", args[0])
			if err != nil {
				return err
			}
			if err := a.repo.DeleteNote(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every note")

	return cmd
}

func newNoteTagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags <note-id> [tag-id...]",
		Short: "Replace a note's tags (no tag ids clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			noteID, err := parseID("note", args[0])
			if err != nil {
				return err
			}
			tagIDs := make([]int64, 0, len(args)-1)
			for _, s := range args[1:] {
				id, err := parseID("tag", s)
				if err != nil {
					return err
				}
				tagIDs = append(tagIDs, id)
			}
			if err := a.repo.ReplaceNoteTags(cmd.Context(), noteID, tagIDs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %d now has %d tags\n", noteID, len(tagIDs))
			return nil
		},
	}

	return cmd
}

func printNotes(w io.Writer, list []models.Note) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	for _, n := range list {
		fmt.Fprintf(w, "%4d  %-30s  %-12s  %s\n", n.ID, n.Title, n.Category, dateutil.FormatDateTime(n.UpdatedAt))
	}
}

func printNotesWithTags(w io.Writer, list []models.NoteWithTags) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notes.")
		return
	}
	for _, n := range list {
		line := fmt.Sprintf("%4d  %-30s  %-12s  %s", n.Note.ID, n.Note.Title, n.Note.Category, dateutil.FormatDateTime(n.Note.UpdatedAt))
		if len(n.Tags) > 0 {
			line += "  [" + joinTagNames(n.Tags) + "]"
		}
		fmt.Fprintln(w, line)
	}
}

func joinTagNames(tags []models.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
