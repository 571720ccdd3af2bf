package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/dealroom/internal/cli/formatter"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Reference project catalog",
	}
	cmd.AddCommand(newProjectAddCmd(app), newProjectFieldCmd(app), newProjectListCmd(app))
	return cmd
}

func newProjectAddCmd(app *App) *cobra.Command {
	var id, title string
	var goal moneyValue

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project owned by the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := app.requireActor()
			if err != nil {
				return err
			}
			p := &domain.Project{ID: id, OwnerID: owner, Title: title, FundingGoal: int64(goal)}
			if err := app.Catalog.CreateProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s), goal %s\n", p.Title, p.ID, formatter.Money(p.FundingGoal))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Project ID (generated when empty)")
	cmd.Flags().StringVar(&title, "title", "", "Project title")
	cmd.Flags().Var(&goal, "goal", "Funding goal, e.g. 1000")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newProjectFieldCmd(app *App) *cobra.Command {
	var confidential bool
	cmd := &cobra.Command{
		Use:   "field PROJECT NAME VALUE...",
		Short: "Set a project field shown to investors",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := app.requireActor()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			p, err := app.Catalog.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			if p.OwnerID != owner {
				return domain.New(domain.CodeNotAuthorized, fmt.Sprintf("user %s does not own project %s", owner, p.ID))
			}
			f := &domain.ProjectField{ProjectID: p.ID, Name: args[1], Value: strings.Join(args[2:], " "), Confidential: confidential}
			if err := app.Catalog.SetField(ctx, f); err != nil {
				return err
			}
			class := "public"
			if confidential {
				class = "confidential"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s field %s on %s\n", class, f.Name, p.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confidential, "confidential", false, "Only disclose after the NDA is signed")
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Catalog.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.ID, p.Title, p.OwnerID, formatter.Money(p.FundingGoal)})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ID", "TITLE", "OWNER", "GOAL"}, rows))
			return nil
		},
	}
}
