package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Minio    MinioConfig    `yaml:"minio"`
	ZapSign  ZapSignConfig  `yaml:"zapsign"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Auth     AuthConfig     `yaml:"auth"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type ZapSignConfig struct {
	APIURL        string `yaml:"api_url"`
	APIToken      string `yaml:"api_token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type GeminiConfig struct {
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	MaxTextLength int    `yaml:"max_text_length"`
}

type AnalysisConfig struct {
	PrimaryTimeoutSeconds   int `yaml:"primary_timeout_seconds"`
	SecondaryTimeoutSeconds int `yaml:"secondary_timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Company  string `yaml:"company"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Secrets may come from the environment instead of the YAML file
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("ZAPSIGN_API_TOKEN"); v != "" {
		cfg.ZapSign.APIToken = v
	}
	if v := os.Getenv("ZAPSIGN_WEBHOOK_SECRET"); v != "" {
		cfg.ZapSign.WebhookSecret = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.ZapSign.APIURL == "" {
		cfg.ZapSign.APIURL = "https://sandbox.api.zapsign.com.br"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.Gemini.MaxTextLength == 0 {
		cfg.Gemini.MaxTextLength = 50000
	}
	if cfg.Analysis.PrimaryTimeoutSeconds == 0 {
		cfg.Analysis.PrimaryTimeoutSeconds = 30
	}
	if cfg.Analysis.SecondaryTimeoutSeconds == 0 {
		cfg.Analysis.SecondaryTimeoutSeconds = 120
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
