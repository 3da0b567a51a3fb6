// Package models contains GORM-specific persistence models that map to database tables.
// Domain entities stay free of GORM tags; the models here carry the table mappings and
// convert to and from the domain with ToDomain / ...FromDomain.
//
// JSON-valued columns (variables, metadata, branding, display config) are stored as
// jsonb strings and decoded on read.
package models
