package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mkrupp/accountdash/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue   string        `env:"STRING_VALUE" default:"default"`
	IntValue      int           `env:"INT_VALUE" default:"42"`
	BoolValue     bool          `env:"BOOL_VALUE" default:"true"`
	DurationValue time.Duration `env:"DURATION_VALUE" default:"2s"`
	ListValue     []string      `env:"LIST_VALUE" default:"a,b"`
	NoEnvTag      string
	Nested        testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

func defaults() testConfig {
	return testConfig{
		StringValue:   "default",
		IntValue:      42,
		BoolValue:     true,
		DurationValue: 2 * time.Second,
		ListValue:     []string{"a", "b"},
		Nested:        testNestedConfig{NestedString: "nested-default"},
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    func(*testConfig)
		wantErr bool
	}{
		{
			name: "uses default values when env vars not set",
		},
		{
			name: "reads environment variables",
			envVars: map[string]string{
				"STRING_VALUE":   "env-value",
				"INT_VALUE":      "123",
				"BOOL_VALUE":     "false",
				"DURATION_VALUE": "150ms",
				"LIST_VALUE":     " x , y ,,z",
				"NESTED_STRING":  "env-nested",
			},
			want: func(c *testConfig) {
				c.StringValue = "env-value"
				c.IntValue = 123
				c.BoolValue = false
				c.DurationValue = 150 * time.Millisecond
				c.ListValue = []string{"x", "y", "z"}
				c.Nested.NestedString = "env-nested"
			},
		},
		{
			name:    "handles prefix correctly",
			prefix:  "APP",
			envVars: map[string]string{"APP_STRING_VALUE": "prefixed-value"},
			want:    func(c *testConfig) { c.StringValue = "prefixed-value" },
		},
		{
			name:    "handles multi-level prefixes",
			prefix:  "APP_SERVICE",
			envVars: map[string]string{"APP_SERVICE_NESTED_STRING": "multi-level"},
			want:    func(c *testConfig) { c.Nested.NestedString = "multi-level" },
		},
		{
			name:   "prefers more specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"STRING_VALUE":             "unprefixed",
				"APP_STRING_VALUE":         "less-specific",
				"APP_SERVICE_STRING_VALUE": "more-specific",
			},
			want: func(c *testConfig) { c.StringValue = "more-specific" },
		},
		{
			name:    "falls back to unprefixed name",
			prefix:  "APP_SERVICE",
			envVars: map[string]string{"INT_VALUE": "7"},
			want:    func(c *testConfig) { c.IntValue = 7 },
		},
		{
			name:    "handles empty string values",
			envVars: map[string]string{"STRING_VALUE": ""},
			want:    func(c *testConfig) { c.StringValue = "" },
		},
		{
			name:    "handles empty list values",
			envVars: map[string]string{"LIST_VALUE": ""},
			want:    func(c *testConfig) { c.ListValue = []string{} },
		},
		{
			name:    "fails on invalid int value",
			envVars: map[string]string{"INT_VALUE": "not-a-number"},
			wantErr: true,
		},
		{
			name:    "fails on invalid bool value",
			envVars: map[string]string{"BOOL_VALUE": "not-a-bool"},
			wantErr: true,
		},
		{
			name:    "fails on invalid duration value",
			envVars: map[string]string{"DURATION_VALUE": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := &testConfig{}
			err := Parse(context.Background(), cfg, tt.prefix)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			want := defaults()
			if tt.want != nil {
				tt.want(&want)
			}

			assert.Equal(t, want.StringValue, cfg.StringValue)
			assert.Equal(t, want.IntValue, cfg.IntValue)
			assert.Equal(t, want.BoolValue, cfg.BoolValue)
			assert.Equal(t, want.DurationValue, cfg.DurationValue)
			assert.Equal(t, want.ListValue, cfg.ListValue)
			assert.Empty(t, cfg.NoEnvTag)
			assert.Equal(t, want.Nested, cfg.Nested)
			assert.Equal(t, tt.prefix, cfg.Namespace())
		})
	}
}

//nolint:paralleltest
func TestParseRequiredVar(t *testing.T) {
	cfg := &struct {
		EnvConfig

		Secret string `env:"REQUIRED_SECRET"`
	}{}

	err := Parse(context.Background(), cfg, "")
	require.ErrorIs(t, err, ErrVarNotSet)

	t.Setenv("REQUIRED_SECRET", "s3cr3t")

	require.NoError(t, Parse(context.Background(), cfg, ""))
	assert.Equal(t, "s3cr3t", cfg.Secret)
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{name: "non-pointer config", cfg: testConfig{}},
		{name: "non-struct pointer", cfg: new(string)},
		{
			name: "missing EnvConfig embedding",
			cfg: &struct {
				Value string `env:"VALUE"`
			}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, Parse(context.Background(), tt.cfg, ""), ErrInvalidConfig)
		})
	}
}

func TestParseUnsupportedType(t *testing.T) {
	t.Parallel()

	cfg := &struct {
		EnvConfig

		Ratio float64 `env:"RATIO" default:"0.5"`
	}{}

	require.ErrorIs(t, Parse(context.Background(), cfg, ""), ErrUnsupportedVarType)
}

//nolint:paralleltest
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(file, []byte("DOTENV_ONLY=from-file\nDOTENV_SHADOWED=from-file\n"), 0o600))

	t.Setenv("DOTENV_SHADOWED", "from-env")
	t.Cleanup(func() { os.Unsetenv("DOTENV_ONLY") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), file))

	assert.Equal(t, "from-file", os.Getenv("DOTENV_ONLY"))
	assert.Equal(t, "from-env", os.Getenv("DOTENV_SHADOWED"))
}
