// Package bootconfig loads the Parameter Manager's ambient bring-up
// configuration: the flags spec.md §6's Command interface otherwise only
// lets a caller flip one at a time (TuningMode, AutoSync, ValueSpace,
// OutputRawFormat) plus a log level, from a small ini file. This is
// distinct from Structure XML and Settings XML, which remain pluggable
// producers the core never parses itself (spec.md §1, §6).
package bootconfig

import (
	"gopkg.in/ini.v1"

	"pfw/internal/pferrors"
)

// ValueSpace selects between textual conversion in raw or real units.
type ValueSpace int

const (
	Real ValueSpace = iota
	Raw
)

// RawFormat selects decimal or hex formatting for raw value space output.
type RawFormat int

const (
	Dec RawFormat = iota
	Hex
)

// Config is the Parameter Manager's bring-up configuration.
type Config struct {
	TuningMode      bool
	AutoSync        bool
	ValueSpace      ValueSpace
	OutputRawFormat RawFormat
	LogLevel        string
}

// Default returns the framework's default bring-up configuration.
func Default() Config {
	return Config{
		TuningMode:      false,
		AutoSync:        true,
		ValueSpace:      Real,
		OutputRawFormat: Dec,
		LogLevel:        "info",
	}
}

// Load parses an ini-format bring-up file, e.g.:
//
//	[parameter-framework]
//	tuning-mode = false
//	auto-sync = true
//	value-space = real
//	output-raw-format = dec
//	log-level = info
func Load(data []byte) (Config, error) {
	cfg := Default()

	f, err := ini.Load(data)
	if err != nil {
		return cfg, pferrors.Wrap(err, "parsing bring-up config")
	}

	sec := f.Section("parameter-framework")
	if sec.HasKey("tuning-mode") {
		cfg.TuningMode = sec.Key("tuning-mode").MustBool(cfg.TuningMode)
	}
	if sec.HasKey("auto-sync") {
		cfg.AutoSync = sec.Key("auto-sync").MustBool(cfg.AutoSync)
	}
	if sec.HasKey("value-space") {
		switch v := sec.Key("value-space").String(); v {
		case "raw":
			cfg.ValueSpace = Raw
		case "real", "":
			cfg.ValueSpace = Real
		default:
			return cfg, pferrors.ForKind(pferrors.InvalidFormat, "unknown value-space %q", v)
		}
	}
	if sec.HasKey("output-raw-format") {
		switch v := sec.Key("output-raw-format").String(); v {
		case "hex":
			cfg.OutputRawFormat = Hex
		case "dec", "":
			cfg.OutputRawFormat = Dec
		default:
			return cfg, pferrors.ForKind(pferrors.InvalidFormat, "unknown output-raw-format %q", v)
		}
	}
	if sec.HasKey("log-level") {
		cfg.LogLevel = sec.Key("log-level").String()
	}

	return cfg, nil
}
