// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/maezuru/internal/events"
	"github.com/pdiddy/maezuru/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scans and history over a local HTTP API",
	Long: `Serve exposes the scan pipeline and the history as a JSON API:

  POST   /api/scans                 run one scan (409 while another runs)
  GET    /api/history               list recorded scans
  DELETE /api/history               clear the history
  GET    /api/history/{id}          one recorded scan
  GET    /api/history/{id}/dossier  HTML dossier download
  GET    /api/history/{id}/graph    link graph (DOT, or ?format=json)
  GET    /healthz                   liveness and version`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8417)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	scanner, err := newScanner(cmd.Context(), cfg, events.NewBus(events.LogSink{Log: log}))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return server.New(scanner, h, log, version).ListenAndServe(ctx, cfg.Server.Addr)
}
