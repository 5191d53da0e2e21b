package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/docket/internal/records"
)

type verification struct {
	Path        string          `json:"path"`
	Stamped     bool            `json:"stamped"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	RouteTag    string          `json:"route_tag,omitempty"`
	StampedAt   *time.Time      `json:"stamped_at,omitempty"`
	Record      *records.Record `json:"record,omitempty"`
	Consistent  bool            `json:"consistent"`
	Error       string          `json:"error,omitempty"`
}

func newVerifyCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE",
		Short: "Decode the stamp on a filed artifact and look up its record",
		Args:  cobra.ExactArgs(1),
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

			ctx := cmd.Context()
			result := verification{Path: args[0]}

			payload, err := svc.pipeline.Stamper.Inspect(ctx, args[0])
			if err != nil {
				result.Error = err.Error()
				return encode(cmd, result, err)
			}
			result.Stamped = true
			result.Fingerprint = payload.Fingerprint.String()
			result.RouteTag = payload.RouteTag
			result.StampedAt = &payload.Timestamp

			rec, err := svc.domain.Records.Find(ctx, payload.Fingerprint)
			if err != nil {
				result.Error = err.Error()
				if errors.Is(err, records.ErrNotFound) {
					return encode(cmd, result, errors.New("no record for stamped fingerprint"))
				}
				return encode(cmd, result, err)
			}
			result.Record = rec
			result.Consistent = rec.RouteTag == payload.RouteTag

			if !result.Consistent {
				return encode(cmd, result, errors.New("stamp route does not match record"))
			}
			return encode(cmd, result, nil)
		},
	}
}

func encode(cmd *cobra.Command, v any, err error) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(v); encErr != nil {
		return encErr
	}
	return err
}
