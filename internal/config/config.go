package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	OperatorKey    string        `mapstructure:"OPERATOR_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	NocoDBBaseURL       string `mapstructure:"NOCODB_BASE_URL"`
	NocoDBToken         string `mapstructure:"NOCODB_TOKEN"`
	NocoDBSlipsTable    string `mapstructure:"NOCODB_SLIPS_TABLE"`
	NocoDBFeedbackTable string `mapstructure:"NOCODB_FEEDBACK_TABLE"`

	SupabaseBaseURL  string `mapstructure:"SUPABASE_BASE_URL"`
	SupabaseKey      string `mapstructure:"SUPABASE_KEY"`
	SupabaseNDRTable string `mapstructure:"SUPABASE_NDR_TABLE"`

	OrderCreateURL    string `mapstructure:"ORDER_CREATE_WEBHOOK_URL"`
	OrderFetchURL     string `mapstructure:"ORDER_FETCH_WEBHOOK_URL"`
	TrackingUpdateURL string `mapstructure:"TRACKING_UPDATE_WEBHOOK_URL"`
	NDRMailerURL      string `mapstructure:"NDR_MAILER_WEBHOOK_URL"`

	CallProvider      string `mapstructure:"CALL_PROVIDER"`
	CallerdeskBaseURL string `mapstructure:"CALLERDESK_BASE_URL"`
	CallerdeskAuthKey string `mapstructure:"CALLERDESK_AUTH_KEY"`
	McubeBaseURL      string `mapstructure:"MCUBE_BASE_URL"`
	McubeAuthKey      string `mapstructure:"MCUBE_AUTH_KEY"`

	SellerStateCode string `mapstructure:"SELLER_STATE_CODE"`
	SellerGSTIN     string `mapstructure:"SELLER_GSTIN"`

	NDRRefreshInterval time.Duration `mapstructure:"NDR_REFRESH_INTERVAL"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SUPABASE_NDR_TABLE", "ndr_records")
	v.SetDefault("CALL_PROVIDER", "callerdesk")
	v.SetDefault("SELLER_STATE_CODE", "33")
	v.SetDefault("NDR_REFRESH_INTERVAL", "5m")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
