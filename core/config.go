package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine         string // mongodb | memory
		URI            string
		Name           string
		ConnectTimeout time.Duration
	}

	AIConfig struct {
		Provider       string // openai | gemini | dummy
		OpenAIKey      string
		OpenAIBaseURL  string
		GeminiKey      string
		GeminiModel    string
		Model          string
		SummaryModel   string
		Temperature    float32
		MaxTokens      int
		MaxConcurrency int
		Timeout        time.Duration
	}

	StorageConfig struct {
		Provider        string // gcs | local
		Bucket          string
		CredentialsFile string
		LocalDir        string
		BaseURL         string
		MaxUploadSize   int64
	}

	Config struct {
		Env      string
		Build    string
		AppName  string
		Debug    bool
		TestMode bool
		WorkDir  string

		SecretKey                 string
		RefreshSecretKey          string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		AI       AIConfig
		Storage  StorageConfig
	}
)

// NewConfig loads the app configuration from the environment.
// Env vars are prefixed by ENV (DEV, TEST, PROD), e.g. DEV_SECRET_KEY.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := os.Getenv("WORK_DIR")
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			log.Fatalf("config.os.Getwd(): %v", err)
		}
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(v, env)
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Build:    v.GetString("build"),
		AppName:  v.GetString("app_name"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("test_mode"),
		WorkDir:  wd,

		SecretKey:                 v.GetString("secret_key"),
		RefreshSecretKey:          v.GetString("refresh_secret_key"),
		JWTExpirationDelta:        v.GetDuration("jwt_expiration_delta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwt_refresh_expiration_delta"),

		FrontendBaseURL: v.GetString("frontend_base_url"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("default_from_name"),
			Address: v.GetString("default_from_email"),
		},
		SendgridApiKey: v.GetString("sendgrid_api_key"),
		RollbarToken:   v.GetString("rollbar_token"),

		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debug_host"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			DisableReqLogs:  v.GetBool("server.disable_req_logs"),
		},
		Database: DatabaseConfig{
			Engine:         v.GetString("database.engine"),
			URI:            v.GetString("database.uri"),
			Name:           v.GetString("database.name"),
			ConnectTimeout: v.GetDuration("database.connect_timeout"),
		},
		AI: AIConfig{
			Provider:       v.GetString("ai.provider"),
			OpenAIKey:      v.GetString("ai.openai_key"),
			OpenAIBaseURL:  v.GetString("ai.openai_base_url"),
			GeminiKey:      v.GetString("ai.gemini_key"),
			GeminiModel:    v.GetString("ai.gemini_model"),
			Model:          v.GetString("ai.model"),
			SummaryModel:   v.GetString("ai.summary_model"),
			Temperature:    float32(v.GetFloat64("ai.temperature")),
			MaxTokens:      v.GetInt("ai.max_tokens"),
			MaxConcurrency: v.GetInt("ai.max_concurrency"),
			Timeout:        v.GetDuration("ai.timeout"),
		},
		Storage: StorageConfig{
			Provider:        v.GetString("storage.provider"),
			Bucket:          v.GetString("storage.bucket"),
			CredentialsFile: v.GetString("storage.credentials_file"),
			LocalDir:        v.GetString("storage.local_dir"),
			BaseURL:         v.GetString("storage.base_url"),
			MaxUploadSize:   v.GetInt64("storage.max_upload_size"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "Darasa")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("refresh_secret_key", "x8#q2-lmd)+0vbe&7kz!r1p@t5w(fy%9ha3^$nuj6c4go")
	v.SetDefault("jwt_expiration_delta", 15*time.Minute)
	v.SetDefault("jwt_refresh_expiration_delta", 7*24*time.Hour)
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_name", "Darasa")
	v.SetDefault("default_from_email", "noreply@localhost")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.engine", "mongodb")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "darasa")
	v.SetDefault("database.connect_timeout", 10*time.Second)

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.gemini_model", "gemini-1.5-flash")
	v.SetDefault("ai.summary_model", "gpt-4")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_tokens", 1500)
	v.SetDefault("ai.max_concurrency", 0)
	v.SetDefault("ai.timeout", 90*time.Second)

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "uploads")
	v.SetDefault("storage.base_url", "/uploads")
	v.SetDefault("storage.max_upload_size", 10<<20)
}
