package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/docket/internal/intake"
)

func newProcessCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process FILE...",
		Short: "Route files once and print the outcome of each as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			svc, err := newService(cfg, false)
			if err != nil {
				return err
			}
			if err := svc.Start(); err != nil {
				return err
			}
			svc.infra.Lifecycle.WaitForStartup()
			defer svc.Shutdown(cfg.ShutdownTimeoutDuration())

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			var failed int
			for _, path := range args {
				item, err := intake.NewItem(path)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					failed++
					continue
				}

				out := svc.orch.Process(ctx, item)
				if err := enc.Encode(out); err != nil {
					return err
				}
				if !out.Status.Terminal() {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files not processed", failed, len(args))
			}
			return nil
		},
	}
}
