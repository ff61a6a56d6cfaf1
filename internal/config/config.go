package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	GIS      DatabaseConfig
	Registry RegistryConfig
	Layers   LayersConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration for the GIS store.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// RegistryConfig holds the external registry connection configuration.
// The registry is a separate relational database reached through a stored
// procedure; its connection parameters are explicit here rather than ambient
// process state.
type RegistryConfig struct {
	Host      string
	Port      string
	Name      string
	User      string
	Password  string
	Procedure string
}

// LayersConfig names the reference polygon layers used for enrichment and
// the SRID coordinates are projected into before sync.
type LayersConfig struct {
	BIATable     string
	BIAColumn    string
	ParcelTable  string
	ParcelColumn string
	AddressTable string
	SRID         int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("GIS_DB_HOST", "localhost")
	v.SetDefault("GIS_DB_PORT", "5432")
	v.SetDefault("GIS_DB_NAME", "addrsync")
	v.SetDefault("GIS_DB_USER", "postgres")
	v.SetDefault("GIS_DB_POOL_MIN", 2)
	v.SetDefault("GIS_DB_POOL_MAX", 10)
	v.SetDefault("REGISTRY_HOST", "localhost")
	v.SetDefault("REGISTRY_PORT", "5432")
	v.SetDefault("REGISTRY_NAME", "registry")
	v.SetDefault("REGISTRY_USER", "registry_sync")
	v.SetDefault("REGISTRY_PROCEDURE", "registry.upsert_address")
	v.SetDefault("BIA_TABLE", "bia_zones")
	v.SetDefault("BIA_COLUMN", "bia")
	v.SetDefault("PARCEL_TABLE", "tax_parcels")
	v.SetDefault("PARCEL_COLUMN", "parcel_id")
	v.SetDefault("ADDRESS_TABLE", "address_points")
	v.SetDefault("PROJECTION_SRID", 4326)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		GIS: DatabaseConfig{
			Host:     v.GetString("GIS_DB_HOST"),
			Port:     v.GetString("GIS_DB_PORT"),
			Name:     v.GetString("GIS_DB_NAME"),
			User:     v.GetString("GIS_DB_USER"),
			Password: v.GetString("GIS_DB_PASSWORD"),
			PoolMin:  v.GetInt("GIS_DB_POOL_MIN"),
			PoolMax:  v.GetInt("GIS_DB_POOL_MAX"),
		},
		Registry: RegistryConfig{
			Host:      v.GetString("REGISTRY_HOST"),
			Port:      v.GetString("REGISTRY_PORT"),
			Name:      v.GetString("REGISTRY_NAME"),
			User:      v.GetString("REGISTRY_USER"),
			Password:  v.GetString("REGISTRY_PASSWORD"),
			Procedure: v.GetString("REGISTRY_PROCEDURE"),
		},
		Layers: LayersConfig{
			BIATable:     v.GetString("BIA_TABLE"),
			BIAColumn:    v.GetString("BIA_COLUMN"),
			ParcelTable:  v.GetString("PARCEL_TABLE"),
			ParcelColumn: v.GetString("PARCEL_COLUMN"),
			AddressTable: v.GetString("ADDRESS_TABLE"),
			SRID:         v.GetInt("PROJECTION_SRID"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate GIS database config
	if c.GIS.Host == "" {
		return fmt.Errorf("GIS_DB_HOST is required")
	}
	if c.GIS.Port == "" {
		return fmt.Errorf("GIS_DB_PORT is required")
	}
	if c.GIS.Name == "" {
		return fmt.Errorf("GIS_DB_NAME is required")
	}
	if c.GIS.User == "" {
		return fmt.Errorf("GIS_DB_USER is required")
	}
	if c.GIS.Password == "" {
		return fmt.Errorf("GIS_DB_PASSWORD is required")
	}
	if c.GIS.PoolMin < 0 {
		return fmt.Errorf("GIS_DB_POOL_MIN must be non-negative")
	}
	if c.GIS.PoolMax < 1 {
		return fmt.Errorf("GIS_DB_POOL_MAX must be at least 1")
	}
	if c.GIS.PoolMin > c.GIS.PoolMax {
		return fmt.Errorf("GIS_DB_POOL_MIN must be less than or equal to GIS_DB_POOL_MAX")
	}

	// Validate registry config
	if c.Registry.Host == "" {
		return fmt.Errorf("REGISTRY_HOST is required")
	}
	if c.Registry.Port == "" {
		return fmt.Errorf("REGISTRY_PORT is required")
	}
	if c.Registry.Name == "" {
		return fmt.Errorf("REGISTRY_NAME is required")
	}
	if c.Registry.User == "" {
		return fmt.Errorf("REGISTRY_USER is required")
	}
	if c.Registry.Password == "" {
		return fmt.Errorf("REGISTRY_PASSWORD is required")
	}
	if c.Registry.Procedure == "" {
		return fmt.Errorf("REGISTRY_PROCEDURE is required")
	}

	// Validate layer config
	if c.Layers.BIATable == "" {
		return fmt.Errorf("BIA_TABLE is required")
	}
	if c.Layers.BIAColumn == "" {
		return fmt.Errorf("BIA_COLUMN is required")
	}
	if c.Layers.ParcelTable == "" {
		return fmt.Errorf("PARCEL_TABLE is required")
	}
	if c.Layers.ParcelColumn == "" {
		return fmt.Errorf("PARCEL_COLUMN is required")
	}
	if c.Layers.AddressTable == "" {
		return fmt.Errorf("ADDRESS_TABLE is required")
	}
	if c.Layers.SRID <= 0 {
		return fmt.Errorf("PROJECTION_SRID must be a positive SRID")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
