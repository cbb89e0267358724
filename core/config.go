package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		AllowOrigins    []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	GradingConfig struct {
		TickInterval    time.Duration
		MaxIncrement    float64
		EstimatedTime   time.Duration
		MaxDuration     time.Duration
		MaxTickFailures int
		Retention       time.Duration
		ReapSchedule    string
		NotifyEmail     string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		PingMessage      string
		Storage          string // memory | postgres
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail string
		JWTCookieName    string
		Server           ServerConfig
		Database         DatabaseConfig
		Grading          GradingConfig
	}
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Address returns the database host:port.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig loads the configuration from defaults, an optional config/.env.<env> file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "GradeWise")
	v.SetDefault("secretKey", "change_me")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("pingMessage", "ping")
	v.SetDefault("storage", StorageMemory)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("jwtCookieName", "gw_token")

	v.SetDefault("serverHost", ":8080")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseName", "gradewise")
	v.SetDefault("databaseUser", "gradewise")
	v.SetDefault("databasePassword", "gradewise")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("gradingTickInterval", 500*time.Millisecond)
	v.SetDefault("gradingMaxIncrement", 15.0)
	v.SetDefault("gradingEstimatedTime", 30*time.Second)
	v.SetDefault("gradingMaxDuration", 10*time.Minute)
	v.SetDefault("gradingMaxTickFailures", 5)
	v.SetDefault("gradingRetention", 24*time.Hour)
	v.SetDefault("gradingReapSchedule", "@every 5m")
	v.SetDefault("gradingNotifyEmail", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	// credentialed CORS needs explicit origins
	allowOrigins := v.GetStringSlice("serverAllowOrigins")
	if len(allowOrigins) == 0 {
		allowOrigins = []string{v.GetString("frontendBaseURL")}
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		PingMessage:      v.GetString("pingMessage"),
		Storage:          strings.ToLower(v.GetString("storage")),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		JWTCookieName:    v.GetString("jwtCookieName"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			AllowOrigins:    allowOrigins,
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetInt("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Grading: GradingConfig{
			TickInterval:    v.GetDuration("gradingTickInterval"),
			MaxIncrement:    v.GetFloat64("gradingMaxIncrement"),
			EstimatedTime:   v.GetDuration("gradingEstimatedTime"),
			MaxDuration:     v.GetDuration("gradingMaxDuration"),
			MaxTickFailures: v.GetInt("gradingMaxTickFailures"),
			Retention:       v.GetDuration("gradingRetention"),
			ReapSchedule:    v.GetString("gradingReapSchedule"),
			NotifyEmail:     v.GetString("gradingNotifyEmail"),
		},
	}
}
