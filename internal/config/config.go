package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	DataDir   string `json:"data_dir"`
	LogLevel  string `json:"log_level"`
	DropsOnly bool   `json:"drops_only"`
	Snapshot  struct {
		URL          string   `json:"url"`
		RecentLimit  int      `json:"recent_limit"`
		RareDays     int      `json:"rare_days"`
		RareLimit    int      `json:"rare_limit"`
		PollSchedule string   `json:"poll_schedule"`
		Timeout      Duration `json:"timeout"`
	} `json:"snapshot"`
	MQTT struct {
		Broker   string `json:"broker"`
		Topic    string `json:"topic"`
		ClientID string `json:"client_id"`
		Username string `json:"username"`
		Password string `json:"password"`
	} `json:"mqtt"`
	Telegram struct {
		Token   string  `json:"token"`
		ChatIDs []int64 `json:"chat_ids"`
	} `json:"telegram"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Timing struct {
		FreshThreshold   Duration `json:"fresh_threshold"`
		BacklogThreshold Duration `json:"backlog_threshold"`
		FullDelay        Duration `json:"full_delay"`
		MinDelay         Duration `json:"min_delay"`
		Stagger          Duration `json:"stagger"`
		ToastDuration    Duration `json:"toast_duration"`
	} `json:"timing"`
	Caps struct {
		Registry       int `json:"registry"`
		RegistryRetain int `json:"registry_retain"`
		Store          int `json:"store"`
		Ambient        int `json:"ambient"`
		Toasts         int `json:"toasts"`
	} `json:"caps"`
}

// Duration is a time.Duration stored as a Go duration string ("5s").
// Bare numbers are read as milliseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val * float64(time.Millisecond)))
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".livedrops"),
		LogLevel: "info",
	}
	cfg.Snapshot.URL = "http://localhost:8080"
	cfg.Snapshot.RecentLimit = 100
	cfg.Snapshot.RareDays = 7
	cfg.Snapshot.RareLimit = 50
	cfg.Snapshot.PollSchedule = "@every 5s"
	cfg.Snapshot.Timeout = Duration(10 * time.Second)
	cfg.MQTT.Topic = "livedrops/activity"
	cfg.MQTT.ClientID = "livedrops"
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = "127.0.0.1:8090"
	cfg.Timing.FreshThreshold = Duration(2 * time.Second)
	cfg.Timing.BacklogThreshold = Duration(5 * time.Second)
	cfg.Timing.FullDelay = Duration(5 * time.Second)
	cfg.Timing.MinDelay = Duration(2 * time.Second)
	cfg.Timing.Stagger = Duration(300 * time.Millisecond)
	cfg.Timing.ToastDuration = Duration(6 * time.Second)
	cfg.Caps.Registry = 200
	cfg.Caps.RegistryRetain = 100
	cfg.Caps.Store = 150
	cfg.Caps.Ambient = 150
	cfg.Caps.Toasts = 5
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if u := os.Getenv("LIVEDROPS_SNAPSHOT_URL"); u != "" {
		cfg.Snapshot.URL = u
	}
	if broker := os.Getenv("LIVEDROPS_MQTT_BROKER"); broker != "" {
		cfg.MQTT.Broker = broker
	}
	if pw := os.Getenv("MQTT_PASSWORD"); pw != "" {
		cfg.MQTT.Password = pw
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg to its nested JSON map form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns cfg as a flat dot-keyed map, optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads one dot-separated key from the config file at path. The
// file is created with defaults if it does not exist.
func GetValue(path, key string) (any, error) {
	if _, err := Load(path); err != nil {
		return nil, err
	}
	flat, err := readFlat(path)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue writes one dot-separated key into the existing config file at
// path. The value is stored as JSON when it parses as JSON, else as a
// string.
func SetValue(path, key, raw string) error {
	flat, err := readFlat(path)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	flat[key] = v

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func readFlat(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return Flatten(m), nil
}
