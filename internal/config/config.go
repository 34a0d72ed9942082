package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Port        int    `mapstructure:"PORT"`
	MetricsPort string `mapstructure:"METRICS_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDB     string `mapstructure:"MONGO_DB"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	NATSUrl     string `mapstructure:"NATS_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	BcryptCost  int    `mapstructure:"BCRYPT_COST"`

	MailerDriver string `mapstructure:"MAILER_DRIVER"` // "smtp" or "mailersend"

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	MailerSendAPIKey string `mapstructure:"MAILERSEND_API_KEY"`
	SenderEmail      string `mapstructure:"SENDER_EMAIL"`
	SenderName       string `mapstructure:"SENDER_NAME"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("METRICS_PORT", "")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "accounts")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("JWT_SECRET", "your-secret-key")
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("MAILER_DRIVER", "smtp")
	viper.SetDefault("SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SENDER_NAME", "Account Service")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
