package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/docket/internal/pipeline"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the intake directory and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			svc, err := newService(cfg, true)
			if err != nil {
				return err
			}

			if err := svc.Start(); err != nil {
				return err
			}

			lc := svc.infra.Lifecycle
			lc.Go(pipeline.NewPoller(svc.orch).Run)

			go func() {
				lc.WaitForStartup()
				svc.infra.Logger.Info("all subsystems ready")
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			<-sigChan

			if err := svc.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
				svc.infra.Logger.Error("shutdown failed", "error", err)
				return err
			}

			svc.infra.Logger.Info("docket stopped")
			return nil
		},
	}
}
