// Command usgears runs the US Gears storefront API and its maintenance tasks.
//
//	usgears serve            # HTTP API, queue workers, scheduler, gRPC health
//	usgears seed             # create the admin account
//	usgears route:list       # print every API route
//	usgears queue:work       # standalone queue worker (redis/amqp drivers)
//	usgears schedule:run     # run due scheduled tasks once, for an external cron
//	usgears backup:uploads   # copy media/ and payment/ into BACKUP_DIR
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/usgears/storefront/database/seeders"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "usgears",
	Short:         "US Gears storefront API",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(dbIndexesCmd)

	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleListCmd)
	rootCmd.AddCommand(backupUploadsCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
