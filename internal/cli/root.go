package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/service"
	"github.com/spf13/cobra"
)

// App holds the use cases the commands dispatch to.
type App struct {
	Negotiations service.NegotiationService
	Messages     service.MessageService
	Access       service.AccessService
	Reports      service.ReportService
	Catalog      service.CatalogService
	Wallet       service.WalletService

	// Serve runs the HTTP API and background loops. Nil disables `serve`.
	Serve func(ctx context.Context) error

	Now           func() time.Time
	IsInteractive func() bool

	actor string
}

func (app *App) now() time.Time {
	if app.Now != nil {
		return app.Now()
	}
	return time.Now()
}

func (app *App) interactive() bool {
	return app.IsInteractive != nil && app.IsInteractive()
}

// requireActor returns the user selected with --as.
func (app *App) requireActor() (string, error) {
	if app.actor == "" {
		return "", errors.New("--as is required: choose the acting user")
	}
	return app.actor, nil
}

// NewRootCmd creates the top-level "dealroom" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "dealroom",
		Short:         "Deposit-backed negotiations between project owners and investors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.actor, "as", "", "Acting user ID")

	root.AddCommand(
		newSessionCmd(app),
		newNDACmd(app),
		newMessageCmd(app),
		newAccessCmd(app),
		newSweepCmd(app),
		newServeCmd(app),
		newReportCmd(app),
		newWatchCmd(app),
		newWalletCmd(app),
		newProjectCmd(app),
	)
	return root
}

// FormatError renders an error for the terminal. Domain errors show their
// user-facing text followed by the detail.
func FormatError(err error) string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Error: %s (%s)", domain.UserMessage(err), err.Error())
}
