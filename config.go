package pdfimages

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/pyhub-apps/pdfimages-golang/pkg/imageio"
)

// Config holds extraction settings read from a YAML file. Zero values keep
// the defaults.
type Config struct {
	Password            string `yaml:"password"`
	Prefix              string `yaml:"prefix"`
	OutputDir           string `yaml:"output_dir"`
	DPI                 int    `yaml:"dpi"`
	DirectJPEG          bool   `yaml:"direct_jpeg"`
	NoColorConvert      bool   `yaml:"no_color_convert"`
	TIFFCompression     string `yaml:"tiff_compression"`
	ContinueOnPageError bool   `yaml:"continue_on_page_error"`
	LogLevel            string `yaml:"log_level"`
}

// LoadConfig reads and checks a YAML config file. Unknown keys are errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config data
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values that have a fixed range
func (c *Config) Validate() error {
	if c.DPI < 0 || c.DPI > imageio.MaxDPI {
		return errors.Errorf("config: dpi must be between 1 and %d, got %d", imageio.MaxDPI, c.DPI)
	}
	switch TIFFCompression(c.TIFFCompression) {
	case "", CompressionLZW, CompressionDeflate:
	default:
		return errors.Errorf("config: tiff_compression must be lzw or deflate, got %q", c.TIFFCompression)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return errors.Wrap(err, "config: log_level")
		}
	}
	return nil
}

// Level returns the configured log level, or def when none is set
func (c *Config) Level(def logrus.Level) logrus.Level {
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil && c.LogLevel != "" {
		return lvl
	}
	return def
}

// Options converts the set fields into extraction options
func (c *Config) Options() []Option {
	var opts []Option
	if c.Password != "" {
		opts = append(opts, WithPassword(c.Password))
	}
	if c.Prefix != "" {
		opts = append(opts, WithPrefix(c.Prefix))
	}
	if c.OutputDir != "" {
		opts = append(opts, WithOutputDir(c.OutputDir))
	}
	if c.DPI > 0 {
		opts = append(opts, WithDPI(c.DPI))
	}
	if c.DirectJPEG {
		opts = append(opts, WithDirectJPEG(true))
	}
	if c.NoColorConvert {
		opts = append(opts, WithNoColorConvert(true))
	}
	if c.TIFFCompression != "" {
		opts = append(opts, WithTIFFCompression(TIFFCompression(c.TIFFCompression)))
	}
	if c.ContinueOnPageError {
		opts = append(opts, WithContinueOnPageError(true))
	}
	return opts
}
