package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/adboard-io/adboard-engine/pkg/postgres"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
)

var ErrTableExists = errors.New("destination table already exists")

const pgDuplicateTableCode = "42P07"

// TableName derives the destination table name for one provider account.
// Pure and deterministic: the same (prefix, accountID) pair always yields the
// same name, and provisioning relies on that to address the table later.
func TableName(prefix, accountID string) string {
	return fmt.Sprintf("%s_%s", prefix, accountID)
}

// Destination is a handle on one company's raw-data database.
type Destination interface {
	CreateRawTable(ctx context.Context, prefix, accountID string) error
	DropRawTable(ctx context.Context, prefix, accountID string) error
}

// Opener turns a destination credential into a live database handle.
type Opener interface {
	Open(ctx context.Context, credentialID uuid.UUID) (Destination, error)
}

type SQLOpener struct {
	companies repository.Company
	logger    *zap.Logger
}

func NewSQLOpener(companies repository.Company, logger *zap.Logger) SQLOpener {
	return SQLOpener{
		companies: companies,
		logger:    logger.Named("tenant"),
	}
}

func (o SQLOpener) Open(ctx context.Context, credentialID uuid.UUID) (Destination, error) {
	record, err := o.companies.GetDatabaseByCredential(ctx, credentialID)
	if err != nil {
		return nil, fmt.Errorf("resolve destination credential %s: %w", credentialID, err)
	}

	orm, err := postgres.NewClientFromDSN(record.DSN, nil, o.logger)
	if err != nil {
		return nil, fmt.Errorf("open destination database for company %s: %w", record.CompanyID, err)
	}

	return SQLDestination{orm: orm}, nil
}

type SQLDestination struct {
	orm *gorm.DB
}

func NewSQLDestination(orm *gorm.DB) SQLDestination {
	return SQLDestination{orm: orm}
}

// CreateRawTable creates the fixed 3-column raw-data table. The DDL must not
// change: downstream ingestion and reporting address these columns directly.
func (d SQLDestination) CreateRawTable(ctx context.Context, prefix, accountID string) error {
	table := TableName(prefix, accountID)

	ddl := fmt.Sprintf(`CREATE TABLE %s (
  id TEXT NOT NULL,
  ingested_at TIMESTAMP NOT NULL,
  data JSON NOT NULL,
  CONSTRAINT %s_pkey PRIMARY KEY (id)
);`, table, table)

	if err := d.orm.WithContext(ctx).Exec(ddl).Error; err != nil {
		if isDuplicateTable(err) {
			return fmt.Errorf("%w: %s", ErrTableExists, table)
		}
		return fmt.Errorf("create destination table %s: %w", table, err)
	}

	return nil
}

func (d SQLDestination) DropRawTable(ctx context.Context, prefix, accountID string) error {
	table := TableName(prefix, accountID)

	if err := d.orm.WithContext(ctx).Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)).Error; err != nil {
		return fmt.Errorf("drop destination table %s: %w", table, err)
	}

	return nil
}

func isDuplicateTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateTableCode
	}
	return strings.Contains(err.Error(), "already exists")
}
