package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.App.DataDir = "."
	cfg.Query.TimeoutSeconds = 30
	cfg.Query.RatePerSecond = 5
	cfg.Query.Burst = 2
	cfg.Workers.Count = 2
	cfg.Workers.QueueSize = 64
	cfg.Retention.SearchHours = 24
	cfg.Retention.LogDays = 180
	cfg.Retention.SweepMinutes = 60
	cfg.Sources.Secop1 = SourceConfig{
		Active: true, Method: "database", Driver: "sqlite", DSNEnv: "SECOP1_DSN",
		Table: "contracts", EntityColumn: "entity_nit", SupplierColumn: "supplier_nit", DateColumn: "signed_at",
	}
	cfg.Sources.Secop2 = SourceConfig{Active: false, Method: "database", Driver: "auto"}
	cfg.Sources.Tvec = SourceConfig{Active: false, Method: "api"}
	return cfg
}

func TestNormalizeAndValidateOK(t *testing.T) {
	out, vr := NormalizeAndValidate(baseConfig())
	require.True(t, vr.OK(), "errors: %v", vr.Errors)
	assert.Equal(t, "database", out.Sources.Secop2.Method)
}

func TestValidateActiveSourceNeedsTemplate(t *testing.T) {
	cfg := baseConfig()
	cfg.Sources.Secop1.Table = ""
	cfg.Sources.Secop1.DSNEnv = ""

	_, vr := NormalizeAndValidate(cfg)
	require.False(t, vr.OK())
	assert.Len(t, vr.Errors, 2)
}

func TestValidateRejectsBadEnums(t *testing.T) {
	cfg := baseConfig()
	cfg.Sources.Secop2.Method = "soap"
	cfg.Sources.Secop2.Driver = "oracle"

	_, vr := NormalizeAndValidate(cfg)
	require.False(t, vr.OK())
	assert.Len(t, vr.Errors, 2)
}

func TestValidateWarnsOnAPISourceAndNoneActive(t *testing.T) {
	cfg := baseConfig()
	cfg.Sources.Secop1.Active = false
	cfg.Sources.Tvec.Active = true

	_, vr := NormalizeAndValidate(cfg)
	assert.True(t, vr.OK())
	assert.NotEmpty(t, vr.Warnings)
}

func TestSourceByNameOrder(t *testing.T) {
	cfg := baseConfig()
	for _, name := range SourceOrder {
		_, ok := cfg.SourceByName(name)
		assert.True(t, ok, name)
	}
	_, ok := cfg.SourceByName("secop3")
	assert.False(t, ok)
}

func TestDefaultsApplied(t *testing.T) {
	cfg := baseConfig()
	cfg.Sources.Secop2.Method = ""
	cfg.Sources.Secop2.Driver = ""

	out, vr := NormalizeAndValidate(cfg)
	require.True(t, vr.OK(), "errors: %v", vr.Errors)
	assert.Equal(t, "database", out.Sources.Secop2.Method)
	assert.Equal(t, "auto", out.Sources.Secop2.Driver)
}
