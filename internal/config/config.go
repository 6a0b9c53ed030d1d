package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Environment variable names.
const (
	EnvRegion                 = "AWS_REGION"
	EnvStage                  = "STAGE"
	EnvLogLevel               = "LOG_LEVEL"
	EnvLogFormat              = "LOG_FORMAT"
	EnvPhotosBucket           = "PHOTOS_BUCKET"
	EnvPhotosTable            = "EVENT_PHOTOS_TABLE"
	EnvBibIndexTable          = "PHOTO_BIB_INDEX_TABLE"
	EnvRunnersTable           = "RUNNERS_TABLE"
	EnvCollectionPrefix       = "REKOGNITION_COLLECTION_PREFIX"
	EnvStateMachineARN        = "STATE_MACHINE_ARN"
	EnvBibMin                 = "BIB_NUMBER_MIN"
	EnvBibMax                 = "BIB_NUMBER_MAX"
	EnvMinTextConfidence      = "MIN_TEXT_CONFIDENCE"
	EnvWatermarkFilter        = "WATERMARK_FILTER_ENABLED"
	EnvWatermarkAreaThreshold = "WATERMARK_AREA_THRESHOLD"
	EnvMinFaceConfidence      = "MIN_FACE_CONFIDENCE"
	EnvMaxFacesPerPhoto       = "MAX_FACES_PER_PHOTO"
	EnvSelfieMaxFaces         = "SELFIE_MAX_FACES"
	EnvMaxRetries             = "REKOGNITION_MAX_RETRIES"
	EnvRetryBaseDelay         = "REKOGNITION_RETRY_BASE_DELAY"
	EnvCDNBaseURL             = "CDN_BASE_URL"
	EnvRosterPadWidth         = "ROSTER_BIB_PAD_WIDTH"
	EnvStoreBackend           = "STORE_BACKEND"
	EnvSQLitePath             = "SQLITE_PATH"
	EnvDynamoDBEndpoint       = "DYNAMODB_ENDPOINT"
	EnvWorkflowMode           = "WORKFLOW_MODE"
	EnvWebHost                = "WEB_HOST"
	EnvWebPort                = "WEB_PORT"
)

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

// Workflow modes.
const (
	WorkflowStepFunctions = "sfn"
	WorkflowLocal         = "local"
)

type Config struct {
	AWS         AWSConfig         `yaml:"aws"`
	Stage       string            `yaml:"stage"`
	Log         LogConfig         `yaml:"log"`
	Tables      TablesConfig      `yaml:"tables"`
	Bib         BibConfig         `yaml:"bib"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Search      SearchConfig      `yaml:"search"`
	Store       StoreConfig       `yaml:"store"`
	Workflow    WorkflowConfig    `yaml:"workflow"`
	Web         WebConfig         `yaml:"web"`
}

type AWSConfig struct {
	Region           string `yaml:"region"`
	DynamoDBEndpoint string `yaml:"dynamodbEndpoint"` // local DynamoDB, e.g. http://localhost:8000
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type TablesConfig struct {
	PhotosBucket string `yaml:"photosBucket"`
	Photos       string `yaml:"photos"`
	BibIndex     string `yaml:"bibIndex"`
	Runners      string `yaml:"runners"` // empty disables the roster
}

type BibConfig struct {
	Min                    int     `yaml:"min"`
	Max                    int     `yaml:"max"`
	MinConfidence          float64 `yaml:"minConfidence"`
	WatermarkFilterEnabled bool    `yaml:"watermarkFilterEnabled"`
	WatermarkAreaThreshold float64 `yaml:"watermarkAreaThreshold"`
	RosterPadWidth         int     `yaml:"rosterPadWidth"`
}

type RecognitionConfig struct {
	CollectionPrefix  string        `yaml:"collectionPrefix"`
	MinFaceConfidence float64       `yaml:"minFaceConfidence"`
	MaxFacesPerPhoto  int           `yaml:"maxFacesPerPhoto"`
	SelfieMaxFaces    int           `yaml:"selfieMaxFaces"`
	MaxRetries        int           `yaml:"maxRetries"`
	RetryBaseDelay    time.Duration `yaml:"retryBaseDelay"`
}

type SearchConfig struct {
	CDNBaseURL string `yaml:"cdnBaseURL"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlitePath"`
}

type WorkflowConfig struct {
	Mode            string `yaml:"mode"`
	StateMachineARN string `yaml:"stateMachineArn"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RosterEnabled reports whether a runners table is configured.
func (c *Config) RosterEnabled() bool {
	return c.Tables.Runners != ""
}

// Require returns an error naming every listed environment variable whose
// resolved value is empty.
func (c *Config) Require(names ...string) error {
	values := map[string]string{
		EnvRegion:           c.AWS.Region,
		EnvStage:            c.Stage,
		EnvPhotosBucket:     c.Tables.PhotosBucket,
		EnvPhotosTable:      c.Tables.Photos,
		EnvBibIndexTable:    c.Tables.BibIndex,
		EnvRunnersTable:     c.Tables.Runners,
		EnvCollectionPrefix: c.Recognition.CollectionPrefix,
		EnvStateMachineARN:  c.Workflow.StateMachineARN,
		EnvCDNBaseURL:       c.Search.CDNBaseURL,
		EnvSQLitePath:       c.Store.SQLitePath,
	}

	var missing []string
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Defaults returns the configuration embedded in defaults.yaml.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// embedded file, only fails on a broken build
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load returns the embedded defaults overridden by environment variables.
func Load() *Config {
	cfg := Defaults()

	cfg.AWS.Region = envString(EnvRegion, cfg.AWS.Region)
	cfg.AWS.DynamoDBEndpoint = envString(EnvDynamoDBEndpoint, cfg.AWS.DynamoDBEndpoint)
	cfg.Stage = envString(EnvStage, cfg.Stage)
	cfg.Log.Level = envString(EnvLogLevel, cfg.Log.Level)
	cfg.Log.Format = envString(EnvLogFormat, cfg.Log.Format)

	cfg.Tables.PhotosBucket = os.Getenv(EnvPhotosBucket)
	cfg.Tables.Photos = os.Getenv(EnvPhotosTable)
	cfg.Tables.BibIndex = os.Getenv(EnvBibIndexTable)
	cfg.Tables.Runners = os.Getenv(EnvRunnersTable)

	cfg.Bib.Min = envInt(EnvBibMin, cfg.Bib.Min)
	cfg.Bib.Max = envInt(EnvBibMax, cfg.Bib.Max)
	cfg.Bib.MinConfidence = envFloat(EnvMinTextConfidence, cfg.Bib.MinConfidence)
	cfg.Bib.WatermarkFilterEnabled = envBool(EnvWatermarkFilter, cfg.Bib.WatermarkFilterEnabled)
	cfg.Bib.WatermarkAreaThreshold = envFloat(EnvWatermarkAreaThreshold, cfg.Bib.WatermarkAreaThreshold)
	cfg.Bib.RosterPadWidth = envInt(EnvRosterPadWidth, cfg.Bib.RosterPadWidth)

	cfg.Recognition.CollectionPrefix = envString(EnvCollectionPrefix, cfg.Recognition.CollectionPrefix)
	cfg.Recognition.MinFaceConfidence = envFloat(EnvMinFaceConfidence, cfg.Recognition.MinFaceConfidence)
	cfg.Recognition.MaxFacesPerPhoto = envInt(EnvMaxFacesPerPhoto, cfg.Recognition.MaxFacesPerPhoto)
	cfg.Recognition.SelfieMaxFaces = envInt(EnvSelfieMaxFaces, cfg.Recognition.SelfieMaxFaces)
	cfg.Recognition.MaxRetries = envInt(EnvMaxRetries, cfg.Recognition.MaxRetries)
	cfg.Recognition.RetryBaseDelay = envDuration(EnvRetryBaseDelay, cfg.Recognition.RetryBaseDelay)

	cfg.Search.CDNBaseURL = strings.TrimRight(envString(EnvCDNBaseURL, cfg.Search.CDNBaseURL), "/")

	cfg.Store.Backend = strings.ToLower(envString(EnvStoreBackend, cfg.Store.Backend))
	cfg.Store.SQLitePath = envString(EnvSQLitePath, cfg.Store.SQLitePath)

	cfg.Workflow.Mode = strings.ToLower(envString(EnvWorkflowMode, cfg.Workflow.Mode))
	cfg.Workflow.StateMachineARN = os.Getenv(EnvStateMachineARN)

	cfg.Web.Host = envString(EnvWebHost, cfg.Web.Host)
	cfg.Web.Port = envInt(EnvWebPort, cfg.Web.Port)

	return cfg
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool treats any value other than false/0/no/off as true.
func envBool(key string, defaultVal bool) bool {
	s := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch s {
	case "":
		return defaultVal
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}

// envDuration accepts Go durations ("1500ms") or a bare number of milliseconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
