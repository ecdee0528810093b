// Command macrosad fits and compares species-abundance distribution models
// from the command line or as an HTTP service.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"macrosad/adapters/api"
	"macrosad/adapters/ingest"
	"macrosad/adapters/postgres"
	"macrosad/adapters/report"
	"macrosad/app"
	"macrosad/domain/sad"
	"macrosad/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("[macrosad] %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "macrosad",
		Short:         "Fit and compare species-abundance distribution models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompareCmd(), newServeCmd(), newModelsCmd())
	return root
}

func newCompareCmd() *cobra.Command {
	var (
		input     string
		format    string
		models    []string
		nullModel string
		corrected bool
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Fit models to abundance tables and write a comparison report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(models) == 0 {
				models = cfg.Models
			}
			if nullModel == "" {
				nullModel = cfg.NullModel
			}
			if !cmd.Flags().Changed("corrected") {
				corrected = cfg.Corrected
			}
			if workers == 0 {
				workers = cfg.Workers
			}

			datasets, err := ingest.ReadFile(input)
			if err != nil {
				return err
			}

			var store app.RunStore
			if cfg.DatabaseURL != "" {
				repo, err := postgres.Connect(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.EnsureSchema(cmd.Context()); err != nil {
					return err
				}
				store = repo
			}

			svc := app.NewCompareService(store)
			rec, err := svc.Run(cmd.Context(), app.CompareRequest{
				Datasets:  datasets,
				Models:    models,
				NullModel: nullModel,
				Corrected: corrected,
				Workers:   workers,
			})
			if err != nil {
				return err
			}
			return writeReport(cfg.OutputDir, format, rec)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "abundance table (csv or xlsx)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "report format: csv, xlsx, md, html")
	cmd.Flags().StringSliceVarP(&models, "models", "m", nil, "candidate model identifiers")
	cmd.Flags().StringVar(&nullModel, "null", "", "null model for likelihood-ratio tests")
	cmd.Flags().BoolVar(&corrected, "corrected", false, "use AICc instead of AIC")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent fits (0 = GOMAXPROCS)")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))
	return cmd
}

func writeReport(dir, format string, rec *app.RunRecord) error {
	name := fmt.Sprintf("comparison-%s", rec.ID)
	switch format {
	case "csv":
		return writeToFile(filepath.Join(dir, name+".csv"), func(f *os.File) error {
			return report.WriteCSV(f, rec.Result)
		})
	case "xlsx":
		path := filepath.Join(dir, name+".xlsx")
		if err := report.WriteXLSX(path, rec.Result); err != nil {
			return err
		}
		log.Printf("[macrosad] wrote %s", path)
		return nil
	case "md":
		return writeToFile(filepath.Join(dir, name+".md"), func(f *os.File) error {
			_, err := f.Write(report.Markdown(rec.Result))
			return err
		})
	case "html":
		return writeToFile(filepath.Join(dir, name+".html"), func(f *os.File) error {
			return report.WriteHTML(f, rec.Result)
		})
	}
	return fmt.Errorf("unknown report format %q", format)
}

func writeToFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	log.Printf("[macrosad] wrote %s", path)
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var store app.RunStore
			if cfg.DatabaseURL != "" {
				repo, err := postgres.Connect(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.EnsureSchema(cmd.Context()); err != nil {
					return err
				}
				store = repo
			}

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           api.NewServer(app.NewCompareService(store)).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("[macrosad] listening on %s", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the available model identifiers",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range sad.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
