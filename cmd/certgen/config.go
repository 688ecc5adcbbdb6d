package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Alexmavl/Generador-Certificados/pkg/certgen"
	"github.com/Alexmavl/Generador-Certificados/pkg/objstore"
)

type yamlConfig struct {
	Log struct {
		Level  string `yaml:"level"`  // panic, fatal, error, warn, info, debug, trace
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
	Generation struct {
		Workers           int      `yaml:"workers"`
		Extension         string   `yaml:"extension"`
		FallbackPrefix    string   `yaml:"fallback_prefix"`
		NameColumns       []string `yaml:"name_columns"`
		DefaultFontSize   float64  `yaml:"default_font_size"`
		DefaultImageWidth float64  `yaml:"default_image_width"`
	} `yaml:"generation"`
	Storage objstore.Config `yaml:"storage"`
}

// loadConfig reads an optional YAML file. An empty path yields the defaults.
func loadConfig(path string) (*yamlConfig, error) {
	yc := &yamlConfig{}
	if path == "" {
		return yc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, yc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return yc, nil
}

// generatorConfig turns the file settings into a certgen.Config. Unset values
// keep the package defaults.
func (yc *yamlConfig) generatorConfig() certgen.Config {
	config := certgen.DefaultConfig()
	g := yc.Generation
	if g.Workers > 0 {
		config.Workers = g.Workers
	}
	if g.Extension != "" {
		config.Extension = g.Extension
		if !strings.HasPrefix(config.Extension, ".") {
			config.Extension = "." + config.Extension
		}
	}
	if g.FallbackPrefix != "" {
		config.FallbackPrefix = g.FallbackPrefix
	}
	if len(g.NameColumns) > 0 {
		config.NameColumns = g.NameColumns
	}
	if g.DefaultFontSize > 0 {
		config.DefaultFontSize = g.DefaultFontSize
	}
	if g.DefaultImageWidth > 0 {
		config.DefaultImageWidth = g.DefaultImageWidth
	}
	return config
}

// newLogger builds the process logger. Logs go to stderr so progress on
// stdout stays readable.
func (yc *yamlConfig) newLogger(debug bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	switch strings.ToLower(yc.Log.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", yc.Log.Format)
	}

	level := logrus.InfoLevel
	if yc.Log.Level != "" {
		parsed, err := logrus.ParseLevel(yc.Log.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	if debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return logger, nil
}
