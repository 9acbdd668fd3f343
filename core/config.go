package core

import (
	"log"
	"net"
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
		DebugHost       string
		ShutdownTimeout time.Duration
		MaxUploadSize   string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	ImportConfig struct {
		PlaceholderIDs []string
		LockBackend    string // memory | redis
		LockTTL        time.Duration
	}

	Config struct {
		AppName   string
		Env       string
		Build     string
		Debug     bool
		TestMode  bool
		SecretKey string

		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Import   ImportConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the app config from the environment, reading `config/.env.<env>` first if it exists.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("appName", "Gradebook")
	conf.SetDefault("build", "dev")
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("serverHost", ":8000")
	conf.SetDefault("serverDebugHost", ":8001")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("serverMaxUploadSize", "8M")

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseUser", "gradebook")
	conf.SetDefault("databasePassword", "gradebook")
	conf.SetDefault("databaseAdminUser", "postgres")
	conf.SetDefault("databaseAdminPassword", "")
	conf.SetDefault("databaseName", "gradebook")
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("redisAddr", "localhost:6379")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDB", 0)

	conf.SetDefault("importPlaceholderIDs", []string{"EX-001"})
	conf.SetDefault("importLockBackend", "memory")
	conf.SetDefault("importLockTTL", 2*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		SecretKey:    conf.GetString("secretKey"),
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			DebugHost:       conf.GetString("serverDebugHost"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
			MaxUploadSize:   conf.GetString("serverMaxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			Name:          conf.GetString("databaseName"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDB"),
		},
		Import: ImportConfig{
			PlaceholderIDs: splitList(conf.GetStringSlice("importPlaceholderIDs")),
			LockBackend:    conf.GetString("importLockBackend"),
			LockTTL:        conf.GetDuration("importLockTTL"),
		},
	}
}

// splitList splits every value on commas, dropping blanks.
// Env values reach viper as one string which it only splits on whitespace.
func splitList(values []string) []string {
	list := make([]string, 0, len(values))
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}
