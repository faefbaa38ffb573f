package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config controls a conversion run. It can be loaded from YAML; command line
// flags override the file.
type Config struct {
	Output    string `yaml:"output"`     // output directory
	Format    string `yaml:"format"`     // png, qoi or raw
	Workers   int    `yaml:"workers"`    // frame writers per file
	QueueSize int    `yaml:"queue_size"` // decoded frames waiting for a writer
	Jobs      int    `yaml:"jobs"`       // files converted at once
	Strict    bool   `yaml:"strict"`     // fail a file on decompressed size mismatch
	Debug     bool   `yaml:"debug"`

	Info bool `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		Output:  ".",
		Format:  "png",
		Workers: runtime.NumCPU(),
		Jobs:    4,
	}
}

// loadConfig reads a YAML config on top of the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, ok := formatExt[c.Format]; !ok {
		return fmt.Errorf("unsupported format %q (must be png, qoi or raw)", c.Format)
	}
	if c.Output == "" {
		return errors.New("output directory must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative, got %d", c.QueueSize)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

// parseArgs builds the run configuration from defaults, an optional -config
// file and the flags that were set explicitly, in that order.
func parseArgs(args []string, stderr io.Writer) (Config, []string, error) {
	fs := flag.NewFlagSet("avfrip", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, "Usage: avfrip [flags] <file.avf|dir>...\n")
		fs.PrintDefaults()
	}

	def := defaultConfig()
	var set Config
	configPath := fs.String("config", "", "YAML config file")
	fs.StringVar(&set.Output, "o", def.Output, "output directory")
	fs.StringVar(&set.Format, "format", def.Format, "output format: png, qoi or raw (zstd compressed RGBA)")
	fs.IntVar(&set.Workers, "workers", def.Workers, "frame writers per file")
	fs.IntVar(&set.QueueSize, "queue", def.QueueSize, "decoded frames waiting for a writer (0 = 2*workers)")
	fs.IntVar(&set.Jobs, "jobs", def.Jobs, "files converted at once")
	fs.BoolVar(&set.Strict, "strict", def.Strict, "fail a file when a chunk decompresses to the wrong size")
	fs.BoolVar(&set.Debug, "debug", def.Debug, "enable debug logging")
	fs.BoolVar(&set.Info, "info", false, "print header and chunk table instead of converting")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return Config{}, nil, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			cfg.Output = set.Output
		case "format":
			cfg.Format = set.Format
		case "workers":
			cfg.Workers = set.Workers
		case "queue":
			cfg.QueueSize = set.QueueSize
		case "jobs":
			cfg.Jobs = set.Jobs
		case "strict":
			cfg.Strict = set.Strict
		case "debug":
			cfg.Debug = set.Debug
		}
	})
	cfg.Info = set.Info

	if err := cfg.validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}
