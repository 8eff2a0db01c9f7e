package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(viper.New())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, CatalogSourceCSV, cfg.Catalog.Source)
	assert.Equal(t, 50, cfg.Catalog.FacilityLimit)
	assert.Equal(t, CacheModeCached, cfg.Model.CacheMode)
	assert.Equal(t, "xgb_classifier.json", cfg.Model.ClassifierFile)
	assert.Equal(t, "models/latest", cfg.Storage.Prefix)
	assert.Equal(t, []string{"http://localhost:8080", "http://127.0.0.1:8080"}, cfg.Server.AllowedOrigins)
}

func TestFromViperEnvOverride(t *testing.T) {
	t.Setenv("CATALOG_FACILITY_LIMIT", "10")
	t.Setenv("MODEL_CACHE_MODE", CacheModeReload)
	t.Setenv("CATALOG_SOURCE", CatalogSourcePostgres)

	cfg := FromViper(viper.New())

	assert.Equal(t, 10, cfg.Catalog.FacilityLimit)
	assert.Equal(t, CacheModeReload, cfg.Model.CacheMode)
	assert.Equal(t, CatalogSourcePostgres, cfg.Catalog.Source)
}
