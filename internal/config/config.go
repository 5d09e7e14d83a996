package config

import (
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Mailer  MailerConfig  `mapstructure:"mailer"`
	SMS     SMSConfig     `mapstructure:"sms"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`      // "development" or "production"
	BaseURL string `mapstructure:"base_url"` // used in verification links
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// MailerConfig selects and configures the outbound email provider.
// Provider is "smtp" or "mailersend".
type MailerConfig struct {
	Provider   string           `mapstructure:"provider"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	MailerSend MailerSendConfig `mapstructure:"mailersend"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	SenderEmail string `mapstructure:"sender_email"`
	SenderName  string `mapstructure:"sender_name"`
}

type MailerSendConfig struct {
	APIKey      string `mapstructure:"api_key"`
	SenderEmail string `mapstructure:"sender_email"`
	SenderName  string `mapstructure:"sender_name"`
}

// SMSConfig configures the Arkesel SMS gateway.
type SMSConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
	Sender string `mapstructure:"sender"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.base_url", "http://localhost:3000")

	viper.SetDefault("http.port", 3000)

	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "identity_service")
	viper.SetDefault("mongo.connect_timeout", "10s")

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.connect_timeout", "5s")

	viper.SetDefault("mailer.provider", "smtp")
	viper.SetDefault("mailer.smtp.port", 587)
	viper.SetDefault("mailer.smtp.sender_name", "CoMAS Identity")

	viper.SetDefault("sms.url", "https://sms.arkesel.com/api/v2/sms/send")
	viper.SetDefault("sms.sender", "CoMAS")

	viper.SetDefault("auth.token_ttl", "1h")
	viper.SetDefault("auth.bcrypt_cost", 10)

	viper.SetDefault("metrics.port", "")

	if path != "" {
		if fi, err := os.Stat(path); err == nil {
			if fi.IsDir() {
				viper.AddConfigPath(path)
				viper.SetConfigName("config")
				viper.SetConfigType("yaml")
			} else {
				viper.SetConfigFile(path)
			}
		}
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("IDENTITY") // e.g. IDENTITY_MONGO_URI

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found; using defaults and environment variables.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
