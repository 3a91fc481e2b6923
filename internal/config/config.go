// Package config owns the engine's JSON configuration document.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"
)

type IMAP struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Folder   string `json:"folder"`
}

type MySQL struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Port     int    `json:"port"`
}

type CRM struct {
	BaseURL        string `json:"base_url"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	ImportEndpoint string `json:"import_endpoint"`
}

// Processor tunes the ingestion loop. Zero values fall back to defaults.
type Processor struct {
	Source              string  `json:"source"` // simulated | imap
	PollIntervalSeconds int     `json:"poll_interval_seconds"`
	ErrorBackoffSeconds int     `json:"error_backoff_seconds"`
	ItemsPerSecond      float64 `json:"items_per_second"`
	MaxMessages         int     `json:"max_messages"`
	RulesPath           string  `json:"rules_path"`
}

const (
	SourceSimulated = "simulated"
	SourceIMAP      = "imap"
)

// Config is the whole document. Top-level keys the engine does not know
// about are kept in Extra and written back unchanged.
type Config struct {
	IMAP      IMAP
	MySQL     MySQL
	CRM       CRM
	ModelPath string
	CSVPath   string
	TempDir   string
	DBPath    string
	Processor *Processor
	Extra     map[string]json.RawMessage
}

// RequiredKeys are the sections every stored or submitted document carries.
var RequiredKeys = []string{
	"imap", "xampp_mysql", "crm", "model_path", "csv_path", "temp_dir", "db_path",
}

func (c Config) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["imap"] = c.IMAP
	m["xampp_mysql"] = c.MySQL
	m["crm"] = c.CRM
	m["model_path"] = c.ModelPath
	m["csv_path"] = c.CSVPath
	m["temp_dir"] = c.TempDir
	m["db_path"] = c.DBPath
	if c.Processor != nil {
		m["processor"] = c.Processor
	}
	return json.Marshal(m)
}

func (c *Config) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var out Config
	fields := map[string]any{
		"imap":        &out.IMAP,
		"xampp_mysql": &out.MySQL,
		"crm":         &out.CRM,
		"model_path":  &out.ModelPath,
		"csv_path":    &out.CSVPath,
		"temp_dir":    &out.TempDir,
		"db_path":     &out.DBPath,
	}
	for key, dst := range fields {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return err
		}
		delete(raw, key)
	}

	if v, ok := raw["processor"]; ok {
		if !isNull(v) {
			out.Processor = &Processor{}
			if err := json.Unmarshal(v, out.Processor); err != nil {
				return err
			}
		}
		delete(raw, "processor")
	}

	for k, v := range raw {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return err
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage, len(raw))
		}
		out.Extra[k] = json.RawMessage(buf.Bytes())
	}

	*c = out
	return nil
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// Default is the document written on first start. Credentials come from the
// environment when set.
func Default() Config {
	return Config{
		IMAP: IMAP{
			Server:   "localhost",
			Port:     993,
			Username: envOr("IMAP_USER", "espocrm@localhost"),
			Password: envOr("IMAP_PASS", ""),
			Folder:   "INBOX",
		},
		MySQL: MySQL{
			Host:     "localhost",
			User:     envOr("MYSQL_USER", "root"),
			Password: envOr("MYSQL_PASS", ""),
			Database: "work_orders",
			Port:     3306,
		},
		CRM: CRM{
			BaseURL:        "http://localhost/espocrm",
			Username:       envOr("CRM_USER", ""),
			Password:       envOr("CRM_PASS", ""),
			ImportEndpoint: "/api/v1/Import",
		},
		ModelPath: "meta-llama/Llama-3.2-1B",
		CSVPath:   "data/work_orders.csv",
		TempDir:   "/tmp/email_attachments",
		DBPath:    "data/processing_logs.db",
		Processor: &Processor{
			Source:              SourceSimulated,
			PollIntervalSeconds: 10,
			ErrorBackoffSeconds: 30,
			ItemsPerSecond:      1,
			MaxMessages:         50,
			RulesPath:           "rules.yml",
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ProcessorSettings is the processor section with defaults applied.
type ProcessorSettings struct {
	Source         string
	PollInterval   time.Duration
	ErrorBackoff   time.Duration
	ItemsPerSecond float64
	MaxMessages    int
	RulesPath      string
}

func (c Config) ProcessorSettings() ProcessorSettings {
	s := ProcessorSettings{
		Source:         SourceSimulated,
		PollInterval:   10 * time.Second,
		ErrorBackoff:   30 * time.Second,
		ItemsPerSecond: 1,
		MaxMessages:    50,
		RulesPath:      "rules.yml",
	}
	p := c.Processor
	if p == nil {
		return s
	}
	if p.Source != "" {
		s.Source = p.Source
	}
	if p.PollIntervalSeconds > 0 {
		s.PollInterval = time.Duration(p.PollIntervalSeconds) * time.Second
	}
	if p.ErrorBackoffSeconds > 0 {
		s.ErrorBackoff = time.Duration(p.ErrorBackoffSeconds) * time.Second
	}
	if p.ItemsPerSecond > 0 {
		s.ItemsPerSecond = p.ItemsPerSecond
	}
	if p.MaxMessages > 0 {
		s.MaxMessages = p.MaxMessages
	}
	if p.RulesPath != "" {
		s.RulesPath = p.RulesPath
	}
	return s
}
