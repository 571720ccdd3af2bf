package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/dealroom/internal/cli/formatter"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/spf13/cobra"
)

func newMessageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Talk inside a negotiation",
	}
	cmd.AddCommand(newMessageSendCmd(app), newMessageListCmd(app))
	return cmd
}

func newMessageSendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send SESSION TEXT...",
		Short: "Send a message to the other party",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := app.requireActor()
			if err != nil {
				return err
			}
			msg, err := app.Messages.Send(cmd.Context(), args[0], sender, strings.Join(args[1:], " "))
			if errors.Is(err, domain.ErrContactLeakDetected) && msg != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", formatter.StyleRed.Render("Blocked:"),
					domain.UserMessage(err)+" ("+strings.Join(msg.Matches, ", ")+")")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message #%d\n", msg.Seq)
			return nil
		},
	}
}

func newMessageListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list SESSION",
		Short: "Show the conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, err := app.requireActor()
			if err != nil {
				return err
			}
			msgs, err := app.Messages.List(cmd.Context(), args[0], viewer)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMessages(msgs, viewer))
			return nil
		},
	}
}

func newAccessCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Check what project information a negotiation discloses",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check SESSION FIELD",
		Short: "Check whether a field is viewable and show it if you may see it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			sessionID, field := args[0], args[1]

			if app.actor == "" {
				ok, err := app.Access.CanView(ctx, sessionID, field)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s viewable: %t\n", field, ok)
				return nil
			}
			f, err := app.Access.Field(ctx, sessionID, app.actor, field)
			if errors.Is(err, domain.ErrNDARequired) {
				fmt.Fprintf(out, "%s %s\n", formatter.StyleYellow.Render(field+":"), domain.UserMessage(err))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", formatter.Bold(f.Name+":"), f.Value)
			return nil
		},
	})
	return cmd
}
