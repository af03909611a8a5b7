package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appgraphql "github.com/usgears/storefront/app/graphql"
	"github.com/usgears/storefront/app/routes"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/internal/kernel"
	"github.com/usgears/storefront/pkg/app"
	"github.com/usgears/storefront/pkg/database"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/router"
	"github.com/usgears/storefront/pkg/ws"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP API with its background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close(context.Background())

		if err := k.Start(ctx); err != nil {
			return err
		}

		a := app.New().
			Health(database.Ping).
			Routes(func(r *router.Router) { routes.RegisterAPI(r, k.Services) })

		logger.Info("usgears: serving", "env", config.AppEnv(), "port", config.AppPort())
		return a.Serve(ctx, ":"+config.AppPort())
	},
}

var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Handlers are never invoked here, so the services can stay nil.
		schema, err := appgraphql.CatalogSchema(nil)
		if err != nil {
			return err
		}
		hub := ws.NewHub(nil)
		svcs := routes.Services{Feed: hub, Events: hub, Schema: &schema}
		infos := app.New().
			Routes(func(r *router.Router) { routes.RegisterAPI(r, svcs) }).
			RouteList()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
