package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/dealroom/internal/cli/formatter"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/alexanderramin/dealroom/internal/service"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open and decide negotiations",
	}

	cmd.AddCommand(
		newSessionOpenCmd(app),
		newSessionDecideCmd(app, "accept", "Accept the negotiation (owner)", app.accept),
		newSessionDecideCmd(app, "reject", "Reject the negotiation (owner)", app.reject),
		newSessionDecideCmd(app, "cancel", "Withdraw from the negotiation (investor)", app.cancel),
		newSessionAgreeCmd(app),
		newSessionShowCmd(app),
		newSessionListCmd(app),
	)
	return cmd
}

func newSessionOpenCmd(app *App) *cobra.Command {
	var projectID string
	var deposit moneyValue

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a negotiation on a project as the investor",
		RunE: func(cmd *cobra.Command, args []string) error {
			investor, err := app.requireActor()
			if err != nil {
				return err
			}
			s, err := app.Negotiations.Open(cmd.Context(), service.OpenRequest{
				ProjectID:     projectID,
				InvestorID:    investor,
				DepositAmount: int64(deposit),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened negotiation %s (deposit %s held, fee %s charged)\n",
				s.ID, formatter.Money(int64(deposit)), formatter.Money(s.AdminFee))
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSession(s, app.now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.Flags().Var(&deposit, "deposit", "Deposit to hold, e.g. 50.00")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("deposit")
	return cmd
}

type decideFunc func(ctx context.Context, sessionID, actorID string) (*domain.NegotiationSession, error)

func (app *App) accept(ctx context.Context, id, actor string) (*domain.NegotiationSession, error) {
	return app.Negotiations.Accept(ctx, id, actor)
}

func (app *App) reject(ctx context.Context, id, actor string) (*domain.NegotiationSession, error) {
	return app.Negotiations.Reject(ctx, id, actor)
}

func (app *App) cancel(ctx context.Context, id, actor string) (*domain.NegotiationSession, error) {
	return app.Negotiations.Cancel(ctx, id, actor)
}

func newSessionDecideCmd(app *App, verb, short string, decide decideFunc) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   verb + " SESSION",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.requireActor()
			if err != nil {
				return err
			}
			ok, err := confirm(app, yes,
				fmt.Sprintf("%s negotiation %s?", verb, args[0]),
				"This closes the negotiation and settles the deposit. It cannot be undone.")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			s, err := decide(cmd.Context(), args[0], actor)
			if err != nil && (s == nil || !errors.Is(err, domain.ErrSettlementFailed)) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Negotiation %s is now %s\n", s.ID, formatter.StatusPill(s.Status))
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newSessionAgreeCmd(app *App) *cobra.Command {
	var amount moneyValue
	var terms string

	cmd := &cobra.Command{
		Use:   "agree SESSION",
		Short: "Record the agreed investment on an accepted negotiation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.requireActor()
			if err != nil {
				return err
			}
			s, err := app.Negotiations.RecordAgreement(cmd.Context(), args[0], actor, int64(amount), terms)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded agreement of %s on %s\n", formatter.Money(s.AgreedAmount), s.ID)
			return nil
		},
	}

	cmd.Flags().Var(&amount, "amount", "Agreed investment, e.g. 25000")
	cmd.Flags().StringVar(&terms, "terms", "", "Free-text summary of the terms")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSessionShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show SESSION",
		Short: "Show a negotiation and the project fields you may see",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, err := app.requireActor()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := app.Negotiations.Get(ctx, args[0], viewer)
			if err != nil {
				return err
			}
			fields, err := app.Access.VisibleFields(ctx, args[0], viewer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.FormatSession(s, app.now()))
			fmt.Fprintln(out, formatter.Header("Project fields"))
			fmt.Fprint(out, formatter.FormatFields(fields))
			return nil
		},
	}
}

func newSessionListCmd(app *App) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your negotiations",
		RunE: func(cmd *cobra.Command, args []string) error {
			party, err := app.requireActor()
			if err != nil {
				return err
			}
			f := repository.SessionFilter{PartyID: party, Limit: limit}
			if status != "" {
				if f.Status, err = domain.ParseSessionStatus(status); err != nil {
					return err
				}
			}
			sessions, err := app.Negotiations.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSessionList(sessions, app.now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, accepted, rejected, cancelled, expired)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 for all)")
	return cmd
}

func newNDACmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nda",
		Short: "Non-disclosure agreements",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sign SESSION",
		Short: "Sign the NDA for a negotiation as the investor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := app.requireActor()
			if err != nil {
				return err
			}
			s, err := app.Negotiations.SignNDA(cmd.Context(), args[0], signer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "NDA signed for %s; access is now %s\n", s.ID, formatter.TierBadge(s.AccessTier()))
			return nil
		},
	})
	return cmd
}
