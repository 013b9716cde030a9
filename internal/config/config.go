// internal/config/config.go
package config

import (
	"log"

	"github.com/spf13/viper"
)

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	From string `mapstructure:"from"`
}

type SESConfig struct {
	Region          string `mapstructure:"region"`
	AuthType        string `mapstructure:"auth_type"` // "static_credentials" or "iam_role"
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	From            string `mapstructure:"from"`
}

// GameConfig は進行エンジンのポリシー定数です。
// 未設定の場合は constants.go のデフォルトが適用されます。
type GameConfig struct {
	StatPointsPerLevel  int `mapstructure:"stat_points_per_level"`
	SkillUnlockLevel    int `mapstructure:"skill_unlock_level"`
	FocusXPPerMinute    int `mapstructure:"focus_xp_per_minute"`
	FocusMinMinutes     int `mapstructure:"focus_min_minutes"`
	FocusSessionCapMin  int `mapstructure:"focus_session_cap_minutes"`
	FocusDailyCapXP     int `mapstructure:"focus_daily_cap_xp"`
	BossAttackMaxEvents int `mapstructure:"boss_attack_max_events"`
}

type Config struct {
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Auth struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"auth"`
	JWT struct {
		SecretKey    string `mapstructure:"secret_key"`
		ExpiresHours int    `mapstructure:"expires_hours"`
	} `mapstructure:"jwt"`
	Mailer struct {
		Type string `mapstructure:"type"` // "log" | "smtp" | "ses"
	} `mapstructure:"mailer"`
	SMTP SMTPConfig `mapstructure:"smtp"`
	SES  SESConfig  `mapstructure:"ses"`
	CORS CORSConfig `mapstructure:"cors"`
	Game GameConfig `mapstructure:"game"`
}

var Cfg Config

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	// 環境変数 (例: APP_DATABASE_URL) も読み込む
	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return err
		}
	}

	if err := viper.Unmarshal(&Cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return err
	}

	// --- デフォルト値の設定 ---
	if Cfg.Server.Port == "" {
		Cfg.Server.Port = DefaultServerPort
	}
	if Cfg.Log.Level == "" {
		Cfg.Log.Level = DefaultLogLevel
	}
	if Cfg.JWT.ExpiresHours <= 0 {
		Cfg.JWT.ExpiresHours = DefaultJWTExpiresHours
	}
	if Cfg.Database.URL == "" {
		log.Println("Warning: Database URL is not set in config.")
	}
	if !viper.IsSet("auth.enabled") {
		Cfg.Auth.Enabled = true
	}

	applyGameDefaults(&Cfg.Game)

	log.Println("Config loaded successfully")
	log.Printf("Server Port: %s", Cfg.Server.Port)
	log.Printf("Auth Enabled: %t", Cfg.Auth.Enabled)

	return nil
}

// applyGameDefaults はポリシー定数の未設定値を埋めます
func applyGameDefaults(g *GameConfig) {
	if g.StatPointsPerLevel <= 0 {
		g.StatPointsPerLevel = DefaultStatPointsPerLevel
	}
	if g.SkillUnlockLevel <= 0 {
		g.SkillUnlockLevel = DefaultSkillUnlockLevel
	}
	if g.FocusXPPerMinute <= 0 {
		g.FocusXPPerMinute = DefaultFocusXPPerMinute
	}
	if g.FocusMinMinutes <= 0 {
		g.FocusMinMinutes = DefaultFocusMinMinutes
	}
	if g.FocusSessionCapMin <= 0 {
		g.FocusSessionCapMin = DefaultFocusSessionCapMinutes
	}
	if g.FocusDailyCapXP <= 0 {
		g.FocusDailyCapXP = DefaultFocusDailyCapXP
	}
	if g.BossAttackMaxEvents <= 0 {
		g.BossAttackMaxEvents = DefaultBossAttackMaxEvents
	}
}
