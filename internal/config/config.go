// Package config collects the environment settings shared by the server,
// the worker and the CLI.
package config

import (
	"strings"

	"github.com/printqa/backend/internal/testrail"
	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/loader"
)

const defaultMaxUploadSize = 256 << 20

type Config struct {
	Debug   bool
	JSONLog bool
	Port    string

	// Store is "postgres" or "memory".
	Store       string
	DatabaseURL string
	Migrate     bool

	MaxUploadSize  int64
	WeldTolerance  float64
	RejectPolygons bool

	AuthURL      string
	MasterAPIKey string

	Bucket   string
	TestRail testrail.Config
}

func Load() Config {
	databaseURL := util.GetEnv("DATABASE_URL")
	defaultStore := "postgres"
	if databaseURL == "" {
		defaultStore = "memory"
	}

	return Config{
		Debug:   util.GetEnvBool("DEBUG", false),
		JSONLog: strings.EqualFold(util.GetEnv("LOG_FORMAT"), "json"),
		Port:    util.GetEnvString("PORT", "8080"),

		Store:       strings.ToLower(util.GetEnvString("STORE", defaultStore)),
		DatabaseURL: databaseURL,
		Migrate:     util.GetEnvBool("MIGRATE", true),

		MaxUploadSize:  int64(util.GetEnvNumeric("MAX_UPLOAD_SIZE", defaultMaxUploadSize)),
		WeldTolerance:  util.GetEnvNumeric("MESH_WELD_TOLERANCE", 0),
		RejectPolygons: util.GetEnvBool("MESH_REJECT_POLYGONS", false),

		AuthURL:      strings.TrimSuffix(util.GetEnv("AUTH_URL"), "/"),
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),

		Bucket:   util.GetEnv("AWS_BUCKET"),
		TestRail: testrail.ConfigFromEnv(),
	}
}

func (c Config) LoaderOptions() loader.Options {
	opts := loader.DefaultOptions()
	if c.WeldTolerance > 0 {
		opts.WeldTolerance = c.WeldTolerance
	}
	opts.RejectPolygons = c.RejectPolygons
	return opts
}
