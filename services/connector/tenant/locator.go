package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/services/connector/repository"
)

var ErrCompanyNotFound = errors.New("company has no destination database")

// Locator resolves a company to the credential of the database that stores
// that company's raw ingested data.
type Locator interface {
	ResolveDestinationCredential(ctx context.Context, companyID string) (uuid.UUID, error)
}

type SQLLocator struct {
	companies repository.Company
}

func NewSQLLocator(companies repository.Company) SQLLocator {
	return SQLLocator{companies: companies}
}

func (l SQLLocator) ResolveDestinationCredential(ctx context.Context, companyID string) (uuid.UUID, error) {
	record, err := l.companies.GetDatabase(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
		}
		return uuid.Nil, err
	}

	return record.CredentialID, nil
}
