package project

import (
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"fee/internal/diag"
)

// Field names one generation setting.
type Field uint8

const (
	FieldRuntime Field = 1 << iota
	FieldInterpreter
	FieldLevel
	FieldWrap
	FieldCommand
	FieldCache
)

// Environment variables read by FromEnv.
const (
	EnvRuntime     = "FEE_RUNTIME"
	EnvInterpreter = "FEE_INTERPRETER"
	EnvLevel       = "FEE_LEVEL"
	EnvWrap        = "FEE_WRAP"
	EnvCache       = "FEE_CACHE"
)

// Settings are generation defaults. Only fields marked as set take part
// in Overlay.
type Settings struct {
	Runtime     string
	Interpreter string
	Level       int
	Wrap        int
	Command     bool
	Cache       bool

	set Field
}

// Builtin returns the defaults used when nothing else is configured.
func Builtin() Settings {
	return Settings{
		Runtime: "python",
		Level:   9,
		set:     FieldRuntime | FieldInterpreter | FieldLevel | FieldWrap | FieldCommand | FieldCache,
	}
}

// Has reports whether f was given.
func (s Settings) Has(f Field) bool { return s.set&f != 0 }

// Mark records f as given.
func (s *Settings) Mark(f Field) { s.set |= f }

// Overlay returns s with every field set in top replaced by top's value.
func (s Settings) Overlay(top Settings) Settings {
	out := s
	if top.Has(FieldRuntime) {
		out.Runtime = top.Runtime
	}
	if top.Has(FieldInterpreter) {
		out.Interpreter = top.Interpreter
	}
	if top.Has(FieldLevel) {
		out.Level = top.Level
	}
	if top.Has(FieldWrap) {
		out.Wrap = top.Wrap
	}
	if top.Has(FieldCommand) {
		out.Command = top.Command
	}
	if top.Has(FieldCache) {
		out.Cache = top.Cache
	}
	out.set |= top.set
	return out
}

// FromEnv reads the FEE_* overrides. Unset or empty variables are not
// marked; a numeric variable that does not parse is an InvalidOption.
func FromEnv() (Settings, error) {
	var s Settings
	if v := env.Str(EnvRuntime); v != "" {
		s.Runtime = v
		s.Mark(FieldRuntime)
	}
	if v := env.Str(EnvInterpreter); v != "" {
		s.Interpreter = v
		s.Mark(FieldInterpreter)
	}
	if v := strings.TrimSpace(env.Str(EnvLevel)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, diag.New(diag.OptInvalid, "%s=%q is not an integer", EnvLevel, v)
		}
		s.Level = n
		s.Mark(FieldLevel)
	}
	if v := strings.TrimSpace(env.Str(EnvWrap)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, diag.New(diag.OptInvalid, "%s=%q is not an integer", EnvWrap, v)
		}
		s.Wrap = n
		s.Mark(FieldWrap)
	}
	if env.Has(EnvCache) {
		s.Cache = env.Bool(EnvCache)
		s.Mark(FieldCache)
	}
	return s, nil
}
