package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Storage backend names accepted by Backend.
const (
	BackendFilesystem = "filesystem"
	BackendMongo      = "mongo"
	BackendDynamo     = "dynamo"
)

// Config holds all configuration for the imperial service
type Config struct {
	Port              int           `json:"port"`
	URL               string        `json:"url"`
	Backend           string        `json:"backend"`
	MongoURL          string        `json:"mongo_url"`
	MongoDatabase     string        `json:"mongo_database"`
	DynamoTable       string        `json:"dynamo_table"`
	AWSRegion         string        `json:"aws_region"`
	DataDir           string        `json:"data_dir"`
	AssetDir          string        `json:"asset_dir"`
	S3Bucket          string        `json:"s3_bucket"`
	S3Prefix          string        `json:"s3_prefix"`
	RenderURL         string        `json:"render_url"`
	DefaultExpiryDays int           `json:"default_expiry_days"`
	MaxExpiryDays     int           `json:"max_expiry_days"`
	SweepInterval     time.Duration `json:"sweep_interval"`
	Version           string        `json:"version"`
	BuildTime         string        `json:"build_time"`
	CommitHash        string        `json:"commit_hash"`
}

// LoadConfig loads configuration from CLI flags and environment variables
func LoadConfig(args []string) *Config {
	config := &Config{
		Port:              8080,
		URL:               "",
		Backend:           BackendFilesystem,
		MongoURL:          "",
		MongoDatabase:     "imperial",
		DynamoTable:       "imperial-documents",
		AWSRegion:         "us-east-1",
		DataDir:           "./data",
		AssetDir:          "./public/assets/img",
		S3Bucket:          "",
		S3Prefix:          "",
		RenderURL:         "",
		DefaultExpiryDays: 5,
		MaxExpiryDays:     31,
		SweepInterval:     time.Hour,
	}

	// Parse CLI flags
	fs := flag.NewFlagSet("imperial", flag.ContinueOnError)
	fs.IntVar(&config.Port, "port", config.Port, "Port to listen on")
	fs.StringVar(&config.URL, "url", config.URL, "Base URL for document links")
	fs.StringVar(&config.Backend, "backend", config.Backend, "Storage backend: filesystem, mongo or dynamo")
	fs.StringVar(&config.MongoURL, "mongo-url", config.MongoURL, "MongoDB connection URL")
	fs.StringVar(&config.MongoDatabase, "mongo-db", config.MongoDatabase, "MongoDB database name")
	fs.StringVar(&config.DynamoTable, "dynamo-table", config.DynamoTable, "DynamoDB table name")
	fs.StringVar(&config.AWSRegion, "aws-region", config.AWSRegion, "AWS region for DynamoDB/S3")
	fs.StringVar(&config.DataDir, "data-dir", config.DataDir, "Directory for the filesystem backend")
	fs.StringVar(&config.AssetDir, "asset-dir", config.AssetDir, "Directory for rendered images")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket for rendered images")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "S3 key prefix for rendered images")
	fs.StringVar(&config.RenderURL, "render-url", config.RenderURL, "Screenshot service endpoint")
	fs.IntVar(&config.DefaultExpiryDays, "default-expiry", config.DefaultExpiryDays, "Default document lifetime in days")
	fs.IntVar(&config.MaxExpiryDays, "max-expiry", config.MaxExpiryDays, "Maximum document lifetime in days")
	fs.DurationVar(&config.SweepInterval, "sweep-interval", config.SweepInterval, "Expired document sweep interval (filesystem backend)")
	_ = fs.Parse(args)

	// Override with environment variables if present
	if val := os.Getenv("IMPERIAL_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Port = port
		}
	}
	if val := os.Getenv("IMPERIAL_URL"); val != "" {
		config.URL = val
	}
	if val := os.Getenv("IMPERIAL_BACKEND"); val != "" {
		config.Backend = val
	}
	if val := os.Getenv("IMPERIAL_MONGO_URL"); val != "" {
		config.MongoURL = val
	}
	if val := os.Getenv("IMPERIAL_MONGO_DB"); val != "" {
		config.MongoDatabase = val
	}
	if val := os.Getenv("IMPERIAL_DYNAMO_TABLE"); val != "" {
		config.DynamoTable = val
	}
	if val := os.Getenv("IMPERIAL_AWS_REGION"); val != "" {
		config.AWSRegion = val
	}
	if val := os.Getenv("IMPERIAL_DATA_DIR"); val != "" {
		config.DataDir = val
	}
	if val := os.Getenv("IMPERIAL_ASSET_DIR"); val != "" {
		config.AssetDir = val
	}
	if val := os.Getenv("IMPERIAL_S3_BUCKET"); val != "" {
		config.S3Bucket = val
	}
	if val := os.Getenv("IMPERIAL_S3_PREFIX"); val != "" {
		config.S3Prefix = val
	}
	if val := os.Getenv("IMPERIAL_RENDER_URL"); val != "" {
		config.RenderURL = val
	}
	if val := os.Getenv("IMPERIAL_DEFAULT_EXPIRY"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			config.DefaultExpiryDays = days
		}
	}
	if val := os.Getenv("IMPERIAL_MAX_EXPIRY"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			config.MaxExpiryDays = days
		}
	}
	if val := os.Getenv("IMPERIAL_SWEEP_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil {
			config.SweepInterval = interval
		}
	}

	return config
}
