package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/internal/kernel"
	"github.com/usgears/storefront/pkg/schedule"
)

var (
	queueWorkersFlag int
	scheduleTaskFlag string
)

var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Process queued jobs until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close(context.Background())

		if config.QueueDriver() == "memory" {
			fmt.Println("QUEUE_DRIVER=memory: jobs are only visible to the process that queued them; `usgears serve` already runs workers.")
		}

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 1
		}
		fmt.Printf("Queue worker started (%d workers, driver %s). Press Ctrl+C to stop.\n", workers, config.QueueDriver())
		k.Queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Run the scheduled tasks that are due now (or one task with --task)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close(context.Background())

		if scheduleTaskFlag != "" {
			return schedule.RunNamed(ctx, scheduleTaskFlag)
		}
		errs := schedule.RunDue(ctx, time.Now())
		for _, err := range errs {
			fmt.Println("  ✗", err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d scheduled task(s) failed", len(errs))
		}
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "schedule:list",
	Short: "List the scheduled tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close(context.Background())

		for _, t := range schedule.List() {
			fmt.Println("  •", t)
		}
		return nil
	},
}

var backupUploadsCmd = &cobra.Command{
	Use:   "backup:uploads",
	Short: "Copy media/ and payment/ into BACKUP_DIR and prune old backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		k, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer k.Close(context.Background())

		rep, err := k.Backup.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Backed up %d file(s) into %s\n", rep.Copied, rep.Dir)
		for _, p := range rep.Pruned {
			fmt.Println("  pruned", p)
		}
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 2, "number of concurrent workers")
	scheduleRunCmd.Flags().StringVar(&scheduleTaskFlag, "task", "", "run only the named task, whether due or not")
}
