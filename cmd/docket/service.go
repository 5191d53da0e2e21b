package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/docket/internal/api"
	"github.com/JaimeStill/docket/internal/config"
	"github.com/JaimeStill/docket/internal/infrastructure"
	"github.com/JaimeStill/docket/internal/pipeline"
	"github.com/JaimeStill/docket/migrations"
)

// service wires infrastructure, the record store and the orchestrator
// for every command.
type service struct {
	cfg      *config.Config
	infra    *infrastructure.Infrastructure
	domain   *api.Domain
	pipeline *pipeline.Runtime
	orch     *pipeline.Orchestrator
	http     *httpServer
}

func newService(cfg *config.Config, listen bool) (*service, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(infra.Database.Connection(), infra.Database.Driver()); err != nil {
		infra.Database.Close()
		return nil, err
	}

	apiRuntime := api.NewRuntime(cfg, infra)
	domain := api.NewDomain(apiRuntime)

	rt, err := pipeline.NewRuntime(cfg, domain.Records, infra.Storage, infra.Logger.With("module", "pipeline"))
	if err != nil {
		infra.Database.Close()
		return nil, fmt.Errorf("pipeline init failed: %w", err)
	}

	orch, err := pipeline.New(rt)
	if err != nil {
		rt.Close()
		infra.Database.Close()
		return nil, err
	}

	svc := &service{
		cfg:      cfg,
		infra:    infra,
		domain:   domain,
		pipeline: rt,
		orch:     orch,
	}

	if listen && cfg.Server.Listen() {
		handler := api.NewHandler(cfg, apiRuntime, domain)
		svc.http = newHTTPServer(&cfg.Server, handler, infra.Logger)
	}

	infra.Logger.Info(
		"service initialized",
		"version", cfg.Version,
		"env", cfg.Env(),
		"driver", infra.Database.Driver(),
		"intake", cfg.Intake.Dir,
		"dispatch", rt.Dispatcher != nil,
		"archive", infra.Storage != nil,
	)

	return svc, nil
}

func (s *service) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}
	if s.http != nil {
		s.http.Start(s.infra.Lifecycle)
	}
	return nil
}

// Shutdown stops runners and hooks, then closes the audit log once no
// item can still be writing to it.
func (s *service) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	err := s.infra.Lifecycle.Shutdown(timeout)
	if cerr := s.pipeline.Close(); cerr != nil {
		s.infra.Logger.Error("audit log close failed", "error", cerr)
	}
	return err
}
