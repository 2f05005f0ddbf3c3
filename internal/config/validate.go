package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Errors block saving; warnings don't.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Query.TimeoutSeconds <= 0 {
		res.addErr("query.timeout_seconds must be > 0")
	} else if out.Query.TimeoutSeconds > 300 {
		res.addWarn("query.timeout_seconds is very high (%d); one slow source will hold a worker that long.", out.Query.TimeoutSeconds)
	}
	if out.Query.RatePerSecond < 0 {
		res.addErr("query.rate_per_second must be >= 0")
	}
	if out.Query.Burst < 0 {
		res.addErr("query.burst must be >= 0")
	}

	if out.Workers.Count <= 0 {
		res.addErr("workers.count must be > 0")
	}
	if out.Workers.QueueSize <= 0 {
		res.addErr("workers.queue_size must be > 0")
	}

	if out.Retention.SearchHours <= 0 {
		res.addErr("retention.search_hours must be > 0")
	}
	if out.Retention.LogDays <= 0 {
		res.addErr("retention.log_days must be > 0")
	}
	if out.Retention.SweepMinutes <= 0 {
		res.addErr("retention.sweep_minutes must be > 0")
	}

	anyActive := false
	for _, name := range SourceOrder {
		sc, _ := out.SourceByName(name)
		normalized := normalizeSource(name, sc, &res)
		switch name {
		case "secop1":
			out.Sources.Secop1 = normalized
		case "secop2":
			out.Sources.Secop2 = normalized
		case "tvec":
			out.Sources.Tvec = normalized
		}
		if normalized.Active {
			anyActive = true
		}
	}
	if !anyActive {
		res.addWarn("no sources are active; every search will finish with no results.")
	}

	return out, res
}

func normalizeSource(name string, sc SourceConfig, res *Validation) SourceConfig {
	sc.Method = strings.ToLower(strings.TrimSpace(sc.Method))
	sc.Driver = strings.ToLower(strings.TrimSpace(sc.Driver))
	if sc.Method == "" {
		sc.Method = "database"
	}
	if sc.Driver == "" {
		sc.Driver = "auto"
	}

	switch sc.Method {
	case "database", "api":
	default:
		res.addErr("sources.%s.method must be database or api", name)
	}
	switch sc.Driver {
	case "sqlite", "postgres", "auto":
	default:
		res.addErr("sources.%s.driver must be sqlite, postgres or auto", name)
	}

	if sc.Active && sc.Method == "database" {
		if strings.TrimSpace(sc.DSNEnv) == "" {
			res.addErr("sources.%s.dsn_env is required for an active database source", name)
		}
		if strings.TrimSpace(sc.Table) == "" {
			res.addErr("sources.%s.table is required for an active database source", name)
		}
		if strings.TrimSpace(sc.EntityColumn) == "" {
			res.addErr("sources.%s.entity_column is required for an active database source", name)
		}
		if strings.TrimSpace(sc.SupplierColumn) == "" {
			res.addErr("sources.%s.supplier_column is required for an active database source", name)
		}
		if strings.TrimSpace(sc.DateColumn) == "" {
			res.addErr("sources.%s.date_column is required for an active database source", name)
		}
	}
	if sc.Active && sc.Method == "api" {
		res.addWarn("sources.%s uses method=api, which always returns zero rows.", name)
	}
	return sc
}
