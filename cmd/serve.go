package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"facturas/internal/api"
	"facturas/internal/logger"
	"facturas/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve invoice processing over HTTP",
	Long: `Start the HTTP API. Each request is processed independently with the tax
parameters loaded at startup.

Endpoints:
  POST /v1/invoices/process   {"text": "...", "city": "Bogotá"}
  POST /v1/invoices/classify  {"text": "..."}
  GET  /v1/taxconfig
  GET  /healthz
  GET  /metrics`,
	Example: `  facturas serve --addr :9090`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	serveCmd.Flags().String("tax-config", "", "Tax configuration YAML file (default: TAX_CONFIG_FILE or built-in)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	taxConfigFile, _ := cmd.Flags().GetString("tax-config")
	if addr == "" {
		addr = appConfig.HTTPAddr
	}

	taxCfg, err := loadTaxConfig(taxConfigFile, 0, log)
	if err != nil {
		return err
	}

	if appConfig.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	processor := pipeline.NewProcessor(taxCfg,
		pipeline.WithDefaultCity(appConfig.DefaultCity),
		pipeline.WithMetrics(pipeline.NewMetrics(prometheus.DefaultRegisterer)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("addr", addr).
		Int("tax_year", taxCfg.Year).
		Msg("Starting HTTP API")

	return api.NewServer(processor).Run(ctx, addr)
}
