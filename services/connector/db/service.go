package db

import (
	"gorm.io/gorm"

	"github.com/adboard-io/adboard-engine/services/connector/model"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(db *gorm.DB) Database {
	return Database{DB: db}
}

func (db Database) Initialize() error {
	return db.DB.AutoMigrate(
		&model.Connector{},
		&model.ConnectorMetadata{},
		&model.CompanyConnectorMapping{},
		&model.CompanyDatabase{},
	)
}
