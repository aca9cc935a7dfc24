package config

import "fmt"

// Engine identifiers accepted in the config file.
const (
	EngineLocal           = "local"
	EngineDemoCloud       = "demo-cloud"
	EngineProductionCloud = "production-cloud"
)

type Config struct {
	Engine     string           `yaml:"engine"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Output     OutputConfig     `yaml:"output"`
	Paths      PathsConfig      `yaml:"paths"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type TranscribeConfig struct {
	Model     string `yaml:"model"`
	ModelDir  string `yaml:"model_dir"`
	Precision string `yaml:"precision"`
	Language  string `yaml:"language"`
	Denoise   bool   `yaml:"denoise"`
	APIKey    string `yaml:"api_key"`
}

type OutputConfig struct {
	Root       string `yaml:"root"`
	ExportSRT  bool   `yaml:"export_srt"`
	ExportDocx bool   `yaml:"export_docx"`
	KeepLastN  int    `yaml:"keep_last_n"`
}

type PathsConfig struct {
	Inbox   string `yaml:"inbox"`
	Scratch string `yaml:"scratch"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func (c *Config) Validate() error {
	switch c.Engine {
	case "":
		c.Engine = EngineLocal
	case EngineLocal, EngineDemoCloud, EngineProductionCloud:
	default:
		return fmt.Errorf("engine must be one of %s, %s, %s",
			EngineLocal, EngineDemoCloud, EngineProductionCloud)
	}

	if c.Transcribe.Model == "" {
		switch c.Engine {
		case EngineLocal:
			c.Transcribe.Model = "small"
		case EngineProductionCloud:
			c.Transcribe.Model = "gpt-4o-mini-transcribe"
		case EngineDemoCloud:
			c.Transcribe.Model = "gemini-2.5-flash"
		}
	}
	if c.Engine == EngineLocal && c.Transcribe.ModelDir == "" {
		return fmt.Errorf("transcribe.model_dir is required for the local engine")
	}
	if c.Transcribe.Precision == "" {
		c.Transcribe.Precision = "int8"
	}

	if c.Output.Root == "" {
		c.Output.Root = "data/transcripts"
	}
	if c.Output.KeepLastN == 0 {
		c.Output.KeepLastN = 3
	}
	if c.Output.KeepLastN < 1 {
		return fmt.Errorf("output.keep_last_n must be >= 1")
	}

	if c.Paths.Inbox == "" {
		c.Paths.Inbox = "data/inbox"
	}
	if c.Paths.Scratch == "" {
		c.Paths.Scratch = "data/scratch"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
