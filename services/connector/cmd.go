package connector

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/httpserver"
	"github.com/adboard-io/adboard-engine/pkg/jq"
	"github.com/adboard-io/adboard-engine/pkg/postgres"
	"github.com/adboard-io/adboard-engine/pkg/vault"
	"github.com/adboard-io/adboard-engine/services/connector/api"
	"github.com/adboard-io/adboard-engine/services/connector/db"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
	"github.com/adboard-io/adboard-engine/services/connector/service"

	koanf "github.com/adboard-io/adboard-engine/pkg/config"
	config "github.com/adboard-io/adboard-engine/services/connector/config"
	"github.com/adboard-io/adboard-engine/services/connector/events"
	"github.com/adboard-io/adboard-engine/services/connector/ingestion"
	"github.com/adboard-io/adboard-engine/services/connector/tenant"
)

func Command() *cobra.Command {
	cnf := koanf.Provide("connector", config.ConnectorConfig{})

	cmd := &cobra.Command{
		Use: "connector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			logger = logger.Named("connector")

			cfg := postgres.Config{
				Host:    cnf.Postgres.Host,
				Port:    cnf.Postgres.Port,
				User:    cnf.Postgres.Username,
				Passwd:  cnf.Postgres.Password,
				DB:      cnf.Postgres.DB,
				SSLMode: cnf.Postgres.SSLMode,
			}
			orm, err := postgres.NewClient(&cfg, logger.Named("postgres"))
			if err != nil {
				return fmt.Errorf("new postgres client: %w", err)
			}

			database := db.NewDatabase(orm)
			if err := database.Initialize(); err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}

			secrets, err := vault.NewHashiCorpStore(vault.Config{
				Address:   cnf.Vault.Address,
				Token:     cnf.Vault.Token,
				CaPath:    cnf.Vault.CaPath,
				MountPath: cnf.Vault.MountPath,
			}, logger)
			if err != nil {
				return fmt.Errorf("new vault client: %w", err)
			}

			connectors := repository.NewConnectorSQL(database)
			mappings := repository.NewMappingSQL(database)
			connMap := repository.NewConnMapSQL(database)
			companies := repository.NewCompanySQL(database)

			locator := tenant.NewSQLLocator(companies)
			opener := tenant.NewSQLOpener(companies, logger)

			ingestionClient := ingestion.NewHTTPClient(cnf.Ingestion.BaseURL, cnf.Ingestion.Token)

			var publisher service.EventPublisher
			if cnf.NATS.URL != "" {
				queue, err := jq.New(cnf.NATS.URL, logger)
				if err != nil {
					return fmt.Errorf("new job queue: %w", err)
				}
				defer queue.Close()

				publisher, err = events.NewPublisher(ctx, queue, logger)
				if err != nil {
					return fmt.Errorf("new event publisher: %w", err)
				}
			}

			lifecycle := service.NewLifecycle(
				connectors,
				mappings,
				connMap,
				locator,
				opener,
				secrets,
				ingestionClient,
				publisher,
				logger,
			)

			return httpserver.RegisterAndStart(
				logger,
				cnf.Http.Address,
				api.New(lifecycle, logger),
			)
		},
	}

	cmd.AddCommand(reconcileCommand())

	return cmd
}

// reconcileCommand runs a single orphan-secret sweep and exits. Intended to
// run as a cron job next to the long-lived service.
func reconcileCommand() *cobra.Command {
	cnf := koanf.Provide("connector", config.ConnectorConfig{})

	return &cobra.Command{
		Use:   "reconcile",
		Short: "delete orphaned credential secrets left behind by failed provisioning",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			logger = logger.Named("connector").Named("reconcile")

			cfg := postgres.Config{
				Host:    cnf.Postgres.Host,
				Port:    cnf.Postgres.Port,
				User:    cnf.Postgres.Username,
				Passwd:  cnf.Postgres.Password,
				DB:      cnf.Postgres.DB,
				SSLMode: cnf.Postgres.SSLMode,
			}
			orm, err := postgres.NewClient(&cfg, logger.Named("postgres"))
			if err != nil {
				return fmt.Errorf("new postgres client: %w", err)
			}

			secrets, err := vault.NewHashiCorpStore(vault.Config{
				Address:   cnf.Vault.Address,
				Token:     cnf.Vault.Token,
				CaPath:    cnf.Vault.CaPath,
				MountPath: cnf.Vault.MountPath,
			}, logger)
			if err != nil {
				return fmt.Errorf("new vault client: %w", err)
			}

			connectors := repository.NewConnectorSQL(db.NewDatabase(orm))

			reconciler := service.NewReconciler(connectors, secrets, service.DefaultOrphanAge, logger)
			collected, err := reconciler.Sweep(ctx)
			if err != nil {
				return err
			}

			logger.Info("sweep finished", zap.Int("collected", collected))
			return nil
		},
	}
}
