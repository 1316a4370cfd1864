package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/seekrai/internal/pipeline"
	"github.com/jonathan/seekrai/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting resumes, polling analysis jobs, and managing the response cache.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := newApp(context.Background(), true)
	if err != nil {
		return err
	}
	defer a.close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	runner := pipeline.NewRunner(a.pipeline, a.tracker, a.logger)
	srv := server.New(server.Config{Port: port}, runner, a.tracker, a.store, a.logger)
	return srv.Start()
}
