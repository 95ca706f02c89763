package backend

import (
	"errors"
	"fmt"

	"covidmx/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		Driver:        appConfig.DBDriver,
		DSN:           appConfig.DBDSN,
		QueryTimeout:  appConfig.DBQueryTimeout,
		BQProject:     appConfig.BQProject,
		BQDataset:     appConfig.BQDataset,
		DataDirectory: appConfig.MemoryDataDir,

		ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		ServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLBackend:
		if c.Driver == "" {
			return errors.New("driver is required for sql backend")
		}
		if c.DSN == "" {
			return errors.New("DSN is required for sql backend")
		}
	case BigQueryBackend:
		if c.BQProject == "" || c.BQDataset == "" {
			return errors.New("project and dataset are required for bigquery backend")
		}
	case MemoryBackend:
		// DataDirectory may be empty: tables are then only those put in memory
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLBackend, BigQueryBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
