package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LIVEDROPS_SNAPSHOT_URL", "LIVEDROPS_MQTT_BROKER", "MQTT_PASSWORD", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestLoad_WritesDefaults(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults were not written: %v", err)
	}
	if cfg.Timing.FullDelay.Std() != 5*time.Second || cfg.Timing.Stagger.Std() != 300*time.Millisecond {
		t.Errorf("unexpected timing defaults %+v", cfg.Timing)
	}
	if cfg.Caps.Registry != 200 || cfg.Caps.RegistryRetain != 100 || cfg.Caps.Store != 150 {
		t.Errorf("unexpected caps %+v", cfg.Caps)
	}
	if cfg.Snapshot.PollSchedule != "@every 5s" {
		t.Errorf("PollSchedule = %q", cfg.Snapshot.PollSchedule)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	original := Defaults()
	original.LogLevel = "debug"
	original.DropsOnly = true
	original.Snapshot.URL = "https://drops.example.com"
	original.MQTT.Broker = "tcp://broker:1883"
	original.MQTT.Password = "hunter2"
	original.Telegram.Token = "bot-token-456"
	original.Telegram.ChatIDs = []int64{-100123, 42}
	original.Timing.MinDelay = Duration(1500 * time.Millisecond)

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LogLevel != "debug" || !loaded.DropsOnly {
		t.Errorf("top-level mismatch: %+v", loaded)
	}
	if loaded.Snapshot.URL != original.Snapshot.URL {
		t.Errorf("Snapshot.URL mismatch: %v != %v", loaded.Snapshot.URL, original.Snapshot.URL)
	}
	if loaded.MQTT.Password != "hunter2" {
		t.Errorf("MQTT.Password mismatch: %v", loaded.MQTT.Password)
	}
	if len(loaded.Telegram.ChatIDs) != 2 || loaded.Telegram.ChatIDs[0] != -100123 {
		t.Errorf("Telegram.ChatIDs mismatch: %v", loaded.Telegram.ChatIDs)
	}
	if loaded.Timing.MinDelay != original.Timing.MinDelay {
		t.Errorf("Timing.MinDelay mismatch: %v != %v", loaded.Timing.MinDelay.Std(), original.Timing.MinDelay.Std())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	t.Setenv("LIVEDROPS_SNAPSHOT_URL", "https://env.example.com")
	t.Setenv("LIVEDROPS_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("MQTT_PASSWORD", "env-pass")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Snapshot.URL != "https://env.example.com" || cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("env endpoints not applied: %+v %+v", cfg.Snapshot, cfg.MQTT)
	}
	if cfg.MQTT.Password != "env-pass" || cfg.Telegram.Token != "env-token" {
		t.Error("env secrets not applied")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"2.5s"`), &d); err != nil || d.Std() != 2500*time.Millisecond {
		t.Errorf("string: got %v, %v", d.Std(), err)
	}
	if err := json.Unmarshal([]byte(`300`), &d); err != nil || d.Std() != 300*time.Millisecond {
		t.Errorf("millis: got %v, %v", d.Std(), err)
	}
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Error("expected error for bad duration")
	}
	if err := json.Unmarshal([]byte(`true`), &d); err == nil {
		t.Error("expected error for bool duration")
	}

	data, err := json.Marshal(Duration(6 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"6s"` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	if err := Save(path, &Config{LogLevel: "info"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "config.json")

	if err := Save(path, &Config{LogLevel: "warn"}); err != nil {
		t.Fatalf("Save should create parent directory, got: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/test", LogLevel: "debug"}
	cfg.MQTT.Topic = "drops"
	cfg.Caps.Store = 150

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	mqtt, ok := m["mqtt"].(map[string]any)
	if !ok {
		t.Fatalf("expected mqtt to be map, got %T", m["mqtt"])
	}
	if mqtt["topic"] != "drops" {
		t.Errorf("expected mqtt.topic=drops, got %v", mqtt["topic"])
	}
	caps := m["caps"].(map[string]any)
	// JSON numbers are float64
	if caps["store"] != float64(150) {
		t.Errorf("expected caps.store=150, got %v", caps["store"])
	}
}

func TestListValues_Masking(t *testing.T) {
	cfg := &Config{LogLevel: "info"}
	cfg.MQTT.Password = "broker-pass-5678"
	cfg.Telegram.Token = "bot-token-abcd"

	flat, err := ListValues(cfg, false)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	if flat["mqtt.password"] != "broker-pass-5678" || flat["telegram.token"] != "bot-token-abcd" {
		t.Errorf("secrets should be unmasked: %v %v", flat["mqtt.password"], flat["telegram.token"])
	}

	flat, err = ListValues(cfg, true)
	if err != nil {
		t.Fatalf("ListValues failed: %v", err)
	}
	if flat["mqtt.password"] != "***5678" {
		t.Errorf("expected masked mqtt.password=***5678, got %v", flat["mqtt.password"])
	}
	if flat["telegram.token"] != "***abcd" {
		t.Errorf("expected masked telegram.token=***abcd, got %v", flat["telegram.token"])
	}
	if flat["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", flat["log_level"])
	}
}

func TestGetValue(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	cfg := Defaults()
	cfg.LogLevel = "debug"
	cfg.Caps.Toasts = 8
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "log_level")
	if err != nil || v != "debug" {
		t.Errorf("log_level = %v, %v", v, err)
	}
	v, err = GetValue(path, "timing.full_delay")
	if err != nil || v != "5s" {
		t.Errorf("timing.full_delay = %v, %v", v, err)
	}
	v, err = GetValue(path, "caps.toasts")
	if err != nil || v != float64(8) {
		t.Errorf("caps.toasts = %v (%T), %v", v, v, err)
	}

	_, err = GetValue(path, "nonexistent.key")
	if err == nil || err.Error() != "unknown config key: nonexistent.key" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestGetValue_NonexistentFile(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	// Load creates the file with defaults.
	v, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatalf("GetValue on new config failed: %v", err)
	}
	if v != "info" {
		t.Errorf("expected default log_level=info, got %v", v)
	}
}

func TestSetValue(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	writeTestConfig(t, path, Defaults())

	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := SetValue(path, "caps.store", "75"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := SetValue(path, "timing.stagger", "250ms"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := SetValue(path, "telegram.chat_ids", "[1, 2]"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Caps.Store != 75 {
		t.Errorf("values not applied: log_level=%s store=%d", cfg.LogLevel, cfg.Caps.Store)
	}
	if cfg.Timing.Stagger.Std() != 250*time.Millisecond {
		t.Errorf("stagger = %v", cfg.Timing.Stagger.Std())
	}
	if len(cfg.Telegram.ChatIDs) != 2 {
		t.Errorf("chat_ids = %v", cfg.Telegram.ChatIDs)
	}
	if cfg.Snapshot.RareDays != 7 {
		t.Errorf("unrelated values should be preserved, rare_days = %d", cfg.Snapshot.RareDays)
	}
}

func TestSetValue_NewNestedKey(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{LogLevel: "info"})

	if err := SetValue(path, "custom.setting", "value"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	v, err := GetValue(path, "custom.setting")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if v != "value" {
		t.Errorf("expected custom.setting=value, got %v", v)
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	if err := SetValue(path, "log_level", "debug"); err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}
