// Package config loads surface and renderer settings from a TOML file and
// INK_-prefixed environment variables.
//
// Every key has a default, so a missing file is not an error. Environment
// variables override the file: retention.max_memory_mb is read from
// INK_RETENTION_MAX_MEMORY_MB.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "ink"
	configType = "toml"
	envPrefix  = "INK"
)

// Load reads the configuration. With an empty path, ink.toml is looked up
// in the working directory and silently skipped when absent.
func Load(v *viper.Viper, path string) (File, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := flatten(Default())
	if err != nil {
		return File{}, err
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return File{}, fmt.Errorf("read config: %w", err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	return f, nil
}

// WriteDefault writes the default configuration as TOML.
func WriteDefault(w io.Writer) error {
	return Write(w, Default())
}

// Write encodes f as TOML.
func Write(w io.Writer, f File) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// flatten encodes f and returns its leaves keyed by dotted path, the form
// viper needs for defaults that environment variables can override.
func flatten(f File) (map[string]any, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := toml.Unmarshal(buf.Bytes(), &tree); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			out[key] = v
		}
	}
	walk("", tree)
	return out, nil
}
