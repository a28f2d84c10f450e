package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisAuthCodeDB    int    `mapstructure:"REDIS_AUTH_CODE_DB"`
	RedisDeviceCodeDB  int    `mapstructure:"REDIS_DEVICE_CODE_DB"`
	RedisOTPDB         int    `mapstructure:"REDIS_OTP_DB"`
	RedisNotifyQueueDB int    `mapstructure:"REDIS_NOTIFY_QUEUE_DB"`

	// Lifetimes for single-use codes and OTPs.
	AuthCodeLifetime   time.Duration `mapstructure:"AUTH_CODE_LIFETIME"`
	DeviceCodeLifetime time.Duration `mapstructure:"DEVICE_CODE_LIFETIME"`
	OTPLifetime        time.Duration `mapstructure:"OTP_LIFETIME"`

	MaxRequestsPerMin int `mapstructure:"MAX_REQUESTS_PER_MIN"`
}

// FirebaseServiceAccountKeyPath points at the FCM service account credentials.
const FirebaseServiceAccountKeyPath = "./config/serviceAccountKey.json"

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_AUTH_CODE_DB", 1)
	viper.SetDefault("REDIS_DEVICE_CODE_DB", 2)
	viper.SetDefault("REDIS_OTP_DB", 3)
	viper.SetDefault("REDIS_NOTIFY_QUEUE_DB", 4)
	viper.SetDefault("AUTH_CODE_LIFETIME", "5m")
	viper.SetDefault("DEVICE_CODE_LIFETIME", "5m")
	viper.SetDefault("OTP_LIFETIME", "5m")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
