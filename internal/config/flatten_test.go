package config

import (
	"testing"
)

func TestFlatten(t *testing.T) {
	m := map[string]any{
		"log_level": "info",
		"caps":      map[string]any{"store": 150.0},
		"a":         map[string]any{"b": map[string]any{"c": "deep"}},
		"empty":     map[string]any{},
		"flag":      true,
	}
	got := Flatten(m)
	want := map[string]any{
		"log_level":  "info",
		"caps.store": 150.0,
		"a.b.c":      "deep",
		"flag":       true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d: %v", len(want), len(got), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestUnflatten(t *testing.T) {
	got := Unflatten(map[string]any{
		"mqtt.topic":  "drops",
		"mqtt.broker": "tcp://b:1883",
		"a.b.c":       "deep",
		"log_level":   "info",
	})
	mqtt, ok := got["mqtt"].(map[string]any)
	if !ok {
		t.Fatalf("expected mqtt to be map, got %T", got["mqtt"])
	}
	if mqtt["topic"] != "drops" || mqtt["broker"] != "tcp://b:1883" {
		t.Errorf("unexpected mqtt map %v", mqtt)
	}
	b := got["a"].(map[string]any)["b"].(map[string]any)
	if b["c"] != "deep" {
		t.Errorf("expected a.b.c=deep, got %v", b["c"])
	}
	if got["log_level"] != "info" {
		t.Errorf("expected log_level=info, got %v", got["log_level"])
	}
	if len(Unflatten(map[string]any{})) != 0 {
		t.Error("expected empty map")
	}
}

func TestRoundTrip_FlattenUnflatten(t *testing.T) {
	original := map[string]any{
		"data_dir": "/home/test/.livedrops",
		"snapshot": map[string]any{"url": "http://x", "rare_days": 7.0},
		"telegram": map[string]any{"token": "bot-token-abc"},
	}
	restored := Unflatten(Flatten(original))

	if restored["data_dir"] != original["data_dir"] {
		t.Errorf("data_dir mismatch: %v", restored["data_dir"])
	}
	snap := restored["snapshot"].(map[string]any)
	if snap["url"] != "http://x" || snap["rare_days"] != 7.0 {
		t.Errorf("snapshot mismatch: %v", snap)
	}
	if restored["telegram"].(map[string]any)["token"] != "bot-token-abc" {
		t.Error("telegram.token mismatch")
	}
}

func TestMaskSecrets(t *testing.T) {
	got := MaskSecrets(map[string]any{
		"mqtt.topic":     "drops",
		"mqtt.password":  "pw-123456",
		"telegram.token": "123456:ABCdefGHIjkl",
		"log_level":      "info",
	})
	if got["mqtt.topic"] != "drops" || got["log_level"] != "info" {
		t.Error("non-secrets should be unchanged")
	}
	if got["mqtt.password"] != "***3456" {
		t.Errorf("expected mqtt.password=***3456, got %v", got["mqtt.password"])
	}
	if got["telegram.token"] != "***Ijkl" {
		t.Errorf("expected telegram.token=***Ijkl, got %v", got["telegram.token"])
	}
}

func TestMaskSecrets_ShortAndEmpty(t *testing.T) {
	cases := map[string]string{"": "", "ab": "***ab", "abcd": "***abcd"}
	for in, want := range cases {
		got := MaskSecrets(map[string]any{"mqtt.password": in})
		if got["mqtt.password"] != want {
			t.Errorf("mask(%q) = %v, want %q", in, got["mqtt.password"], want)
		}
	}
	if !IsSecretKey("telegram.token") || IsSecretKey("mqtt.topic") {
		t.Error("IsSecretKey misclassified")
	}
}
