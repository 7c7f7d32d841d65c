package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	paramsFilePathENV = "PARAMS_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
)

// Settings — every knob of the breakout engine. Defaults mirror the values
// the strategy was tuned with; a yaml file and env vars override them.
type Settings struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Stream struct {
		URL       string `yaml:"url"`
		Timeframe string `yaml:"timeframe"`
	} `yaml:"stream"`

	// Universe membership is decided outside the core; the file just names
	// the symbols the platform already filtered by liquidity/price.
	Universe []string `yaml:"universe"`

	IndicatorPeriod     int     `yaml:"indicator_period"`
	OpeningRangeMinutes int     `yaml:"opening_range_minutes"`
	RVOLThreshold       float64 `yaml:"rvol_threshold"`
	MaxPositions        int     `yaml:"max_positions"`

	EntryBufferATR      float64 `yaml:"entry_buffer_atr"`
	StopLossATRDistance float64 `yaml:"stop_loss_atr_distance"`
	ATRPriceFloor       float64 `yaml:"atr_price_floor"`
	LongOnly            bool    `yaml:"long_only"`
	GapMinPct           float64 `yaml:"gap_min_pct"`

	// RiskFraction — fraction of portfolio value lost if the initial stop of
	// every concurrent position hits.
	RiskFraction float64 `yaml:"risk_fraction"`
	Leverage     float64 `yaml:"leverage"`
	MarginBuffer float64 `yaml:"margin_buffer"`
	// RetryFraction — size multiplier for the single retry after a rejection.
	RetryFraction float64 `yaml:"retry_fraction"`

	BreakevenTriggerR       float64 `yaml:"breakeven_trigger_r"`
	TrailATRMult            float64 `yaml:"trail_atr_mult"`
	TrailUpdateThresholdATR float64 `yaml:"trail_update_threshold_atr"`
	TrailMinTicks           int     `yaml:"trail_min_ticks"`

	TimeStopHHMM string `yaml:"time_stop_hhmm"` // e.g. "10:45", exchange time

	SessionOpenHHMM  string `yaml:"session_open_hhmm"`
	SessionCloseHHMM string `yaml:"session_close_hhmm"`
	SessionTimezone  string `yaml:"session_timezone"`

	UseOptions           bool `yaml:"use_options"`
	OptionUseDebitSpread bool `yaml:"option_use_debit_spread"`
	OptionMaxSpreadTicks int  `yaml:"option_max_spread_ticks"`
	OptionMinOI          int  `yaml:"option_min_oi"`
	OptionDTEMax         int  `yaml:"option_dte_max"`
	ConfirmDelayMin      int  `yaml:"confirm_delay_min"`
	ConfirmBars          int  `yaml:"confirm_bars"`
}

func NewSettings() (*Settings, error) {
	s := defaults()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	if file, err := os.Open("configs/" + configFileName); err == nil {
		decoder := yaml.NewDecoder(file)
		err = decoder.Decode(s)
		_ = file.Close()
		if err != nil {
			return nil, errors.Wrap(err, "decode config file")
		}
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		s.Telegram.Token = token
	}

	if err := s.applyParameters(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaults() *Settings {
	s := &Settings{
		IndicatorPeriod:     intFromEnv("INDICATOR_PERIOD", 14),
		OpeningRangeMinutes: intFromEnv("OPENING_RANGE_MINUTES", 5),
		RVOLThreshold:       floatFromEnv("RVOL_THRESHOLD", 1.8),
		MaxPositions:        intFromEnv("MAX_POSITIONS", 8),

		EntryBufferATR:      floatFromEnv("ENTRY_BUFFER_ATR", 0.10),
		StopLossATRDistance: floatFromEnv("STOP_LOSS_ATR_DISTANCE", 0.5),
		ATRPriceFloor:       floatFromEnv("ATR_PRICE_FLOOR", 0.01),
		LongOnly:            boolFromEnv("LONG_ONLY", true),
		GapMinPct:           floatFromEnv("GAP_MIN_PCT", 0),

		RiskFraction:  floatFromEnv("RISK_FRACTION", 0.01),
		Leverage:      floatFromEnv("LEVERAGE", 4),
		MarginBuffer:  floatFromEnv("MARGIN_BUFFER", 0.90),
		RetryFraction: floatFromEnv("RETRY_FRACTION", 0.50),

		BreakevenTriggerR:       floatFromEnv("BREAKEVEN_TRIGGER_R", 1.0),
		TrailATRMult:            floatFromEnv("TRAIL_ATR_MULT", 1.5),
		TrailUpdateThresholdATR: floatFromEnv("TRAIL_UPDATE_THRESHOLD_ATR", 0.25),
		TrailMinTicks:           intFromEnv("TRAIL_MIN_TICKS", 2),

		TimeStopHHMM: getenvDefault("TIME_STOP_HHMM", "10:45"),

		SessionOpenHHMM:  getenvDefault("SESSION_OPEN_HHMM", "09:30"),
		SessionCloseHHMM: getenvDefault("SESSION_CLOSE_HHMM", "16:00"),
		SessionTimezone:  getenvDefault("SESSION_TIMEZONE", "America/New_York"),

		UseOptions:           boolFromEnv("USE_OPTIONS", false),
		OptionUseDebitSpread: boolFromEnv("OPTION_USE_DEBIT_SPREAD", false),
		OptionMaxSpreadTicks: intFromEnv("OPTION_MAX_SPREAD_TICKS", 10),
		OptionMinOI:          intFromEnv("OPTION_MIN_OI", 200),
		OptionDTEMax:         intFromEnv("OPTION_DTE_MAX", 7),
		ConfirmDelayMin:      intFromEnv("CONFIRM_DELAY_MIN", 7),
		ConfirmBars:          intFromEnv("CONFIRM_BARS", 1),
	}
	s.Stream.Timeframe = getenvDefault("STREAM_TIMEFRAME", "1m")
	return s
}

// applyParameters overlays the optimizer-facing knobs from a flat parameters
// file, when one is present. Keys follow the historical dashed naming.
func (s *Settings) applyParameters() error {
	name := getenvDefault(paramsFilePathENV, "parameters")

	v := viper.New()
	v.SetConfigName(name)
	v.AddConfigPath("configs")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errors.Wrap(err, "read parameters file")
	}

	if v.IsSet("rvol-threshold") {
		s.RVOLThreshold = v.GetFloat64("rvol-threshold")
	}
	if v.IsSet("stop-loss-atr-distance") {
		s.StopLossATRDistance = v.GetFloat64("stop-loss-atr-distance")
	}
	if v.IsSet("trail-atr-mult") {
		s.TrailATRMult = v.GetFloat64("trail-atr-mult")
	}
	if v.IsSet("entry-buffer-atr") {
		s.EntryBufferATR = v.GetFloat64("entry-buffer-atr")
	}
	if v.IsSet("breakeven-trigger-r") {
		s.BreakevenTriggerR = v.GetFloat64("breakeven-trigger-r")
	}
	if v.IsSet("max-positions") {
		s.MaxPositions = v.GetInt("max-positions")
	}
	return nil
}

// ConfirmDelay as a duration from session open.
func (s *Settings) ConfirmDelay() time.Duration {
	return time.Duration(s.ConfirmDelayMin) * time.Minute
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
