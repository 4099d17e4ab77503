package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/imagecache"
	"github.com/rodstewart/modelosctl/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve filtered, sorted and paged results over HTTP",
	Long: `Run a read-only JSON API over the catalog.

Endpoints:
  GET /api/modelos              filtered, sorted and paged results
  GET /api/modelos/:id          one entry
  GET /api/modelos/:id/imagem   entry image
  GET /healthz                  liveness
  GET /metrics                  Prometheus metrics

Query parameters match the list flags, plus sort, page and size.

Examples:
  modelosctl serve
  modelosctl serve --addr :9090
  curl 'localhost:8080/api/modelos?area=Biologia&sort=alfabetica&page=2'`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !debugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	source := a.listSource()
	defer func() { _ = source.Close() }()

	images, err := imagecache.New(a.client, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := images.Close(); err != nil {
			a.log.Warn("failed to clean image cache", zap.Error(err))
		}
	}()

	opts := server.Options{
		Engine:     a.engine(),
		Source:     source,
		Images:     images,
		Logger:     a.log,
		PageSize:   a.cfg.PageSize,
		WindowSize: a.cfg.WindowSize,
	}
	// the salvos-* sorts follow the bookmarks of the configured account
	if a.client.HasToken() {
		opts.Saved = a.client
	}

	fmt.Fprintf(os.Stderr, "Serving results on %s\n", addr)
	return server.New(opts).Run(cmd.Context(), addr)
}
