package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Model    ModelConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// CatalogConfig selects where inventory and facility feature tables are read from.
type CatalogConfig struct {
	Source               string // "csv" or "postgres"
	InventoryPath        string
	FacilityFeaturesPath string
	FacilityLimit        int
}

// ModelConfig locates the serialized model artifacts.
type ModelConfig struct {
	ArtifactDir        string
	ClassifierFile     string
	RegressorFile      string
	LabelEncoderFile   string
	FeatureColumnsFile string
	CacheMode          string // "cached" or "reload"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StorageConfig is the S3-compatible bucket holding published model artifacts.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	FolderPath      string
	DownloadDir     string
}

const (
	CatalogSourceCSV      = "csv"
	CatalogSourcePostgres = "postgres"

	CacheModeCached = "cached"
	CacheModeReload = "reload"
)

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = FromViper(viper.GetViper())
	})

	return instance
}

// FromViper builds a Config from v after registering defaults and env binding.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Catalog: CatalogConfig{
			Source:               v.GetString("CATALOG_SOURCE"),
			InventoryPath:        v.GetString("CATALOG_INVENTORY_PATH"),
			FacilityFeaturesPath: v.GetString("CATALOG_FACILITY_FEATURES_PATH"),
			FacilityLimit:        v.GetInt("CATALOG_FACILITY_LIMIT"),
		},
		Model: ModelConfig{
			ArtifactDir:        v.GetString("MODEL_ARTIFACT_DIR"),
			ClassifierFile:     v.GetString("MODEL_CLASSIFIER_FILE"),
			RegressorFile:      v.GetString("MODEL_REGRESSOR_FILE"),
			LabelEncoderFile:   v.GetString("MODEL_LABEL_ENCODER_FILE"),
			FeatureColumnsFile: v.GetString("MODEL_FEATURE_COLUMNS_FILE"),
			CacheMode:          v.GetString("MODEL_CACHE_MODE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
			FolderPath:      v.GetString("DRIVE_FOLDER_PATH"),
			DownloadDir:     v.GetString("DRIVE_DOWNLOAD_DIR"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:8080", "http://127.0.0.1:8080"})
	v.SetDefault("CATALOG_SOURCE", CatalogSourceCSV)
	v.SetDefault("CATALOG_INVENTORY_PATH", "./data/inventory_dataset.csv")
	v.SetDefault("CATALOG_FACILITY_FEATURES_PATH", "./data/facility_features_precalculated.csv")
	v.SetDefault("CATALOG_FACILITY_LIMIT", 50)
	v.SetDefault("MODEL_ARTIFACT_DIR", "./artifacts")
	v.SetDefault("MODEL_CLASSIFIER_FILE", "xgb_classifier.json")
	v.SetDefault("MODEL_REGRESSOR_FILE", "xgb_regressor.json")
	v.SetDefault("MODEL_LABEL_ENCODER_FILE", "le_category.json")
	v.SetDefault("MODEL_FEATURE_COLUMNS_FILE", "feature_columns.json")
	v.SetDefault("MODEL_CACHE_MODE", CacheModeCached)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "restock")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_PREFIX", "models/latest")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_FOLDER_PATH", "")
	v.SetDefault("DRIVE_DOWNLOAD_DIR", "./data")
}
