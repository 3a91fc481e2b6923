package config

import (
	"encoding/json"
	"fmt"
	"net/url"
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

// MissingKeys returns the required top-level sections absent from a raw document.
func MissingKeys(raw []byte) ([]string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

// Validate checks a document without modifying it.
func Validate(cfg Config) Validation {
	var res Validation

	checkPort := func(name string, port int) {
		if port <= 0 || port > 65535 {
			res.addErr("%s must be 1..65535", name)
		}
	}

	checkPort("imap.port", cfg.IMAP.Port)
	checkPort("xampp_mysql.port", cfg.MySQL.Port)

	if strings.TrimSpace(cfg.DBPath) == "" {
		res.addErr("db_path is required")
	}
	if strings.TrimSpace(cfg.IMAP.Folder) == "" {
		res.addWarn("imap.folder is empty; INBOX will be used")
	}
	if cfg.CRM.BaseURL != "" {
		if u, err := url.Parse(cfg.CRM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			res.addErr("crm.base_url must be an absolute URL")
		}
	}

	p := cfg.Processor
	if p == nil {
		return res
	}

	switch p.Source {
	case "", SourceSimulated:
	case SourceIMAP:
		if strings.TrimSpace(cfg.IMAP.Server) == "" {
			res.addErr("imap.server is required when processor.source=imap")
		}
		if strings.TrimSpace(cfg.IMAP.Username) == "" {
			res.addErr("imap.username is required when processor.source=imap")
		}
		if cfg.IMAP.Password == "" {
			res.addWarn("imap.password is empty; the OS keychain will be consulted")
		}
	default:
		res.addErr("processor.source must be %q or %q", SourceSimulated, SourceIMAP)
	}

	if p.PollIntervalSeconds < 0 {
		res.addErr("processor.poll_interval_seconds must be >= 0")
	} else if p.PollIntervalSeconds > 0 && p.PollIntervalSeconds < 5 && p.Source == SourceIMAP {
		res.addWarn("processor.poll_interval_seconds is very low (%d) for an IMAP server", p.PollIntervalSeconds)
	}
	if p.ErrorBackoffSeconds < 0 {
		res.addErr("processor.error_backoff_seconds must be >= 0")
	}
	if p.ErrorBackoffSeconds > 0 && p.ErrorBackoffSeconds < p.PollIntervalSeconds {
		res.addWarn("processor.error_backoff_seconds is shorter than the poll interval")
	}
	if p.ItemsPerSecond < 0 {
		res.addErr("processor.items_per_second must be >= 0")
	}
	if p.MaxMessages < 0 {
		res.addErr("processor.max_messages must be >= 0")
	}

	return res
}
