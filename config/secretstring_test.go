package config

import (
	"encoding/json"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestSecretString_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input SecretString
		want  string
	}{
		{"empty string", "", "null"},
		{"non-empty string", "my-secret-token", `"` + SecretStringValue + `"`},
		{"short string", "x", `"` + SecretStringValue + `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSecretString_NoLeakage(t *testing.T) {
	const token = "super-secret-token-value"

	src := SourceConfig{AuthToken: token}

	data, err := yaml.Marshal(src)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), token) {
		t.Errorf("YAML output leaks secret: %s", data)
	}

	data, err = json.Marshal(src)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(data), token) {
		t.Errorf("JSON output leaks secret: %s", data)
	}

	if src.AuthToken.Reveal() != token {
		t.Errorf("Reveal() = %q, want %q", src.AuthToken.Reveal(), token)
	}
}

func TestSecretString_Unmarshal(t *testing.T) {
	var src SourceConfig
	if err := yaml.Unmarshal([]byte("auth_token: abc\n"), &src); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if src.AuthToken.Reveal() != "abc" {
		t.Errorf("AuthToken = %q, want abc", src.AuthToken.Reveal())
	}
}
