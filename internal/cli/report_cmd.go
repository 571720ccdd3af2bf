package cli

import (
	"fmt"

	"github.com/alexanderramin/dealroom/internal/cli/formatter"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/spf13/cobra"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Admin reporting",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "summary",
			Short: "Sessions by status, money held and open escalations",
			RunE: func(cmd *cobra.Command, args []string) error {
				sum, err := app.Reports.Summary(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSummary(sum))
				return nil
			},
		},
		newReportSessionsCmd(app),
		&cobra.Command{
			Use:   "flags",
			Short: "Sessions escalated for contact leaks",
			RunE: func(cmd *cobra.Command, args []string) error {
				flags, err := app.Reports.ListFlags(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatFlags(flags))
				return nil
			},
		},
		newReportAlertsCmd(app),
	)
	return cmd
}

func newReportSessionsCmd(app *App) *cobra.Command {
	var status, projectID, party string
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List every negotiation",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repository.SessionFilter{ProjectID: projectID, PartyID: party, Limit: limit}
			if status != "" {
				st, err := domain.ParseSessionStatus(status)
				if err != nil {
					return err
				}
				f.Status = st
			}
			sessions, err := app.Reports.ListSessions(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSessionList(sessions, app.now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&projectID, "project", "", "Filter by project")
	cmd.Flags().StringVar(&party, "party", "", "Filter by owner or investor")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 for all)")
	return cmd
}

func newReportAlertsCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Settlements that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := app.Reports.ListAlerts(cmd.Context(), all)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAlerts(alerts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include resolved alerts")
	return cmd
}
