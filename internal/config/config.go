// Package config loads secpbuild.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "secpbuild.toml"

// Defaults.
const (
	DefaultSourceRoot     = "depend/secp256k1"
	DefaultArchive        = "secp256k1"
	DefaultOutDir         = "target/native"
	DefaultMetadataPrefix = "cargo:"
)

// File is the decoded secpbuild.toml.
type File struct {
	Source   SourceConfig   `toml:"source"`
	Output   OutputConfig   `toml:"output"`
	Build    BuildConfig    `toml:"build"`
	Metadata MetadataConfig `toml:"metadata"`
}

// SourceConfig locates the vendored tree.
type SourceConfig struct {
	Root string `toml:"root"`
}

// OutputConfig controls where the archive goes and what it is called.
type OutputConfig struct {
	Dir     string `toml:"dir"`
	Archive string `toml:"archive"`
}

// BuildConfig tunes the compiler invocation.
type BuildConfig struct {
	Jobs          int      `toml:"jobs"`
	PrintCommands bool     `toml:"print_commands"`
	Flags         []string `toml:"flags"`
}

// MetadataConfig controls link directives printed for the invoking build.
type MetadataConfig struct {
	Emit   *bool  `toml:"emit"`
	Prefix string `toml:"prefix"`
}

// Config is a loaded file together with where it came from.
type Config struct {
	// Path is empty when no file was found.
	Path string
	// Dir is the directory relative paths resolve against.
	Dir  string
	File File
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

// Find walks up from startDir looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest secpbuild.toml above startDir, or defaults
// rooted at startDir when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		abs, absErr := filepath.Abs(startDir)
		if absErr != nil {
			abs = startDir
		}
		return Default(abs), nil
	}
	return Load(path)
}

// Load decodes and validates the file at path.
func Load(path string) (*Config, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("source", "root") && strings.TrimSpace(f.Source.Root) == "" {
		return nil, fmt.Errorf("%s: [source].root must not be empty", path)
	}
	if meta.IsDefined("output", "archive") {
		if err := validateArchiveName(f.Output.Archive); err != nil {
			return nil, fmt.Errorf("%s: [output].archive: %w", path, err)
		}
	}
	if f.Build.Jobs < 0 {
		return nil, fmt.Errorf("%s: [build].jobs must not be negative", path)
	}
	c := &Config{Path: path, Dir: filepath.Dir(path), File: f}
	c.applyDefaults()
	return c, nil
}

func validateArchiveName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return errors.New("must not be empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q must be a bare name", name)
	case strings.HasPrefix(name, "lib") || strings.HasSuffix(name, ".a"):
		return fmt.Errorf("%q must not carry the lib prefix or .a suffix", name)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.File.Source.Root) == "" {
		c.File.Source.Root = DefaultSourceRoot
	}
	if strings.TrimSpace(c.File.Output.Archive) == "" {
		c.File.Output.Archive = DefaultArchive
	}
	if c.File.Build.Jobs == 0 {
		c.File.Build.Jobs = 1
	}
	if c.File.Metadata.Prefix == "" {
		c.File.Metadata.Prefix = DefaultMetadataPrefix
	}
}

// SourceRoot returns the vendored tree resolved against Dir.
func (c *Config) SourceRoot() string {
	return c.resolve(c.File.Source.Root)
}

// OutputDir returns the configured output directory resolved against Dir, or
// "" when unset.
func (c *Config) OutputDir() string {
	if strings.TrimSpace(c.File.Output.Dir) == "" {
		return ""
	}
	return c.resolve(c.File.Output.Dir)
}

// EmitMetadata reports whether link directives are printed.
func (c *Config) EmitMetadata() bool {
	if c.File.Metadata.Emit == nil {
		return true
	}
	return *c.File.Metadata.Emit
}

func (c *Config) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
