// Package config defines the JSON-serializable configuration of the
// insights dashboard: where tables come from, how extracts are parsed, where
// summaries are exported, who may call the API, and which analysis window
// and top-N limits apply. Environment variables override selected fields; see
// ApplyEnv.
//
// Example (trimmed):
//
//	{
//	  "job":    "insights",
//	  "source": { "kind": "dir", "dir": "data/adventureworks" },
//	  "parser": { "kind": "csv", "options": { "trim_space": true } },
//	  "export": { "kind": "sqlite", "dsn": "insights.db", "auto_create_table": true },
//	  "analysis": { "sales_from": "2013-07-01", "sales_to": "2014-06-30" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"insights/internal/analysis"
	"insights/internal/parser/csv"
)

// Date layout used by the analysis window fields.
const DateLayout = "2006-01-02"

// Dashboard is the top-level object decoded from a config file.
type Dashboard struct {
	// Job labels metrics and log lines.
	Job      string   `json:"job"`
	Source   Source   `json:"source"`
	Parser   Parser   `json:"parser"`
	Export   Export   `json:"export"`
	Server   Server   `json:"server"`
	Metrics  Metrics  `json:"metrics"`
	Analysis Analysis `json:"analysis"`
	Log      Log      `json:"log"`
	Runtime  Runtime  `json:"runtime"`
}

// Source selects where tables are loaded from.
type Source struct {
	// Kind is "dir" for a directory of CSV extracts or "sql" for a database.
	Kind string `json:"kind"`
	// Dir holds one "<Table>.csv" per table for the "dir" kind.
	Dir string `json:"dir"`
	// Storage is the database for the "sql" kind.
	Storage DB `json:"storage"`
	// Tables maps table names to SQL relations for the "sql" kind, e.g.
	// "ProductInventory": "Production.ProductInventory".
	Tables map[string]string `json:"tables"`
}

// DB identifies a database.
type DB struct {
	// Kind is a registered storage kind: postgres, mssql, mysql or sqlite.
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// Parser configures extract parsing.
type Parser struct {
	// Kind selects the parser. Current value: "csv".
	Kind string `json:"kind"`
	// Options for csv: comma (string), trim_space (bool), lazy_quotes (bool),
	// header_map (object), scrub (array of {from, to}), log_limit (int).
	Options Options `json:"options"`
}

// Export configures where summaries are written.
type Export struct {
	DB
	// Schema prefixes each destination table, e.g. "insights".
	Schema          string `json:"schema"`
	BatchSize       int    `json:"batch_size"`
	AutoCreateTable bool   `json:"auto_create_table"`
}

// Enabled reports whether an export destination is configured.
func (e Export) Enabled() bool { return e.Kind != "" && e.DSN != "" }

// Server configures the HTTP API.
type Server struct {
	Addr  string `json:"addr"`
	Users []User `json:"users"`
}

// Roles.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// User is one API account. PasswordHash is a bcrypt hash.
type User struct {
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "prometheus" (Pushgateway) or "datadog".
	Backend        string   `json:"backend"`
	PushgatewayURL string   `json:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr"`
	Namespace      string   `json:"namespace"`
	Tags           []string `json:"tags"`
}

// Analysis holds analysis parameters.
type Analysis struct {
	// SalesFrom and SalesTo bound the sales-by-territory window, inclusive,
	// as YYYY-MM-DD.
	SalesFrom string `json:"sales_from"`
	SalesTo   string `json:"sales_to"`
	// TopN overrides per-analysis row limits.
	TopN map[string]int `json:"top_n"`
	// Period is the seasonal period in months for decomposition.
	Period int `json:"period"`
}

// Log configures logging.
type Log struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

// Runtime controls concurrency and batching.
type Runtime struct {
	LoadWorkers int `json:"load_workers"`
	BatchSize   int `json:"batch_size"`
}

// Default returns the configuration used when no file is given: CSV extracts
// in ./data, no export, no metrics, the default analysis window.
func Default() Dashboard {
	return Dashboard{
		Job:     "insights",
		Source:  Source{Kind: "dir", Dir: "data"},
		Parser:  Parser{Kind: "csv", Options: Options{"trim_space": true}},
		Server:  Server{Addr: ":8080"},
		Metrics: Metrics{Backend: "none"},
		Log:     Log{Level: "info"},
	}
}

// Load reads a JSON config from path on top of Default.
func Load(path string) (Dashboard, error) {
	d := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("decode config %s: %w", path, err)
	}
	return d, nil
}

// ParserOptions converts the parser options bag to csv.Options.
func (d Dashboard) ParserOptions() csv.Options {
	o := d.Parser.Options
	opt := csv.Options{
		Comma:      o.Rune("comma", 0),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HeaderMap:  o.StringMap("header_map"),
		LogLimit:   o.Int("log_limit", 0),
	}
	for _, r := range o.Objects("scrub") {
		opt.Scrub = append(opt.Scrub, csv.Replacement{From: r.String("from", ""), To: r.String("to", "")})
	}
	return opt
}

// AnalysisOptions converts the analysis block, filling unset fields from
// analysis.DefaultOptions.
func (d Dashboard) AnalysisOptions() (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	if d.Analysis.SalesFrom != "" {
		t, err := time.Parse(DateLayout, d.Analysis.SalesFrom)
		if err != nil {
			return opt, fmt.Errorf("analysis.sales_from: %w", err)
		}
		opt.SalesFrom = t
	}
	if d.Analysis.SalesTo != "" {
		t, err := time.Parse(DateLayout, d.Analysis.SalesTo)
		if err != nil {
			return opt, fmt.Errorf("analysis.sales_to: %w", err)
		}
		opt.SalesTo = t
	}
	if len(d.Analysis.TopN) > 0 {
		opt.TopN = d.Analysis.TopN
	}
	if d.Analysis.Period > 0 {
		opt.Period = d.Analysis.Period
	}
	return opt, nil
}

// Options is a helper to fetch typed values from free-form JSON maps. It
// performs minimal coercion and returns the default when a key is absent or
// of an unexpected type.
type Options map[string]any

// String returns the string at key or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the number at key or def. JSON numbers decode as float64.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// Rune returns the first rune of the string at key or def.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		return []rune(s)[0]
	}
	return def
}

// StringMap returns the string values of the object at key. Non-string
// values are ignored; a missing key gives an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if m, ok := o[key].(map[string]any); ok {
		for k, v := range m {
			if s, ok := v.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns the strings of the array at key, or nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	}
	return nil
}

// Objects returns the objects of the array at key, or nil.
func (o Options) Objects(key string) []Options {
	arr, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Options, 0, len(arr))
	for _, x := range arr {
		if m, ok := x.(map[string]any); ok {
			out = append(out, Options(m))
		}
	}
	return out
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
