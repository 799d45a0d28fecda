package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/models"
)

// NewTagCommand creates the tag command group.
func NewTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Create, list, edit and delete tags",
		Long: `Commands for working with tags.

Colors are #RRGGBB, #AARRGGBB or a color name such as "red" or "teal".

Examples:
  notes tag add errand --color "#FF9800"
  notes tag list
  notes tag edit 2 --name chores`,
	}

	cmd.AddCommand(newTagAddCommand())
	cmd.AddCommand(newTagListCommand())
	cmd.AddCommand(newTagEditCommand())
	cmd.AddCommand(newTagDeleteCommand())

	return cmd
}

func newTagAddCommand() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := a.repo.InsertTag(cmd.Context(), &models.Tag{Name: args[0], Color: color})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", models.DefaultTagColor, "Tag color")

	return cmd
}

func newTagListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tags by name",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			tags, err := a.repo.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tags)
			}
			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				fmt.Fprintln(out, "No tags.")
				return nil
			}
			for _, t := range tags {
				fmt.Fprintf(out, "%4d  %-20s  %s\n", t.ID, t.Name, t.Color)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}

func newTagEditCommand() *cobra.Command {
	var (
		name  string
		color string
	)

	cmd := &cobra.Command{
		Use:   "edit <tag-id>",
		Short: "Rename or recolor a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("tag", args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			tag, err := a.repo.GetTagByID(ctx, id)
			if err != nil {
				return err
			}
			if tag == nil {
				return errors.Newf(errors.ErrTagNotFound, "tag %d not found", id)
			}
			if cmd.Flags().Changed("name") {
				tag.Name = name
			}
			if cmd.Flags().Changed("color") {
				tag.Color = color
			}
			if err := a.repo.UpdateTag(ctx, tag); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated tag %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&color, "color", "", "New color")

	return cmd
}

func newTagDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <tag-id>",
		Short:   "Delete a tag and detach it from every note",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("tag", args[0])
			if err != nil {
				return err
			}
			if err := a.repo.DeleteTag(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %d\n", id)
			return nil
		},
	}

	return cmd
}
