package certgen

import (
	"github.com/sirupsen/logrus"
)

// Config holds user options for a batch run
type Config struct {
	Workers           int                   // Rows rendered concurrently (1 = strictly sequential)
	Extension         string                // Artifact file extension
	FallbackPrefix    string                // Artifact name prefix when a row has no usable name
	NameColumns       []string              // Columns tried, in order, for the artifact name
	DefaultFontSize   float64               // Used when a text field has no positive size
	DefaultImageWidth float64               // Points, used when an image field has no width
	OnProgress        func(percent float64) // Called after each row with a value in (0,100]
	Logger            logrus.FieldLogger    // Custom logger (nil = text logger on stdout)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:           1,
		Extension:         ".pdf",
		FallbackPrefix:    "certificate_", // Will be formatted as "certificate_3" for the third row
		NameColumns:       []string{"Name", "Nombre", "name"},
		DefaultFontSize:   12,
		DefaultImageWidth: 100,
		OnProgress:        nil,
		Logger:            nil, // stdout
	}
}

// withDefaults fills zero values from DefaultConfig so callers may set only
// the options they care about.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	if c.Extension == "" {
		c.Extension = d.Extension
	}
	if c.FallbackPrefix == "" {
		c.FallbackPrefix = d.FallbackPrefix
	}
	if c.NameColumns == nil {
		c.NameColumns = d.NameColumns
	}
	if c.DefaultFontSize <= 0 {
		c.DefaultFontSize = d.DefaultFontSize
	}
	if c.DefaultImageWidth <= 0 {
		c.DefaultImageWidth = d.DefaultImageWidth
	}
	return c
}
