// Package config loads the .objtrans.yaml configuration file.
//
// The file is optional. When present it supplies the org connection
// defaults and the object and locale lists, so that commands can be run
// without flags. The session id is never read from the file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/objtrans/locale"
	"github.com/minios-linux/objtrans/metadata"
	"github.com/minios-linux/objtrans/workbook"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .objtrans.yaml structure.
type File struct {
	// InstanceURL is the org's base URL.
	InstanceURL string `yaml:"instance_url,omitempty"`
	// APIVersion is the Metadata API version (default "46.0").
	APIVersion string `yaml:"api_version,omitempty"`
	// Objects is the default object list.
	Objects []string `yaml:"objects,omitempty"`
	// Locales is the default locale list; empty means every org locale.
	Locales []string `yaml:"locales,omitempty"`
	// Workbook is the workbook file name (default "i18n.xlsx").
	Workbook string `yaml:"file,omitempty"`
	// OutputDir is where export and retrieve write the workbook (default ".").
	OutputDir string `yaml:"output_dir,omitempty"`
	// Concurrency bounds in-flight calls per stage (0 = unbounded).
	Concurrency int `yaml:"concurrency,omitempty"`
	// Timeout bounds a single HTTP request (default 2m).
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Retries is the number of HTTP-level retries (default 2).
	Retries *int `yaml:"retries,omitempty"`
	// Proxy is an optional HTTP proxy URL.
	Proxy string `yaml:"proxy,omitempty"`
	// Lock enables incremental import through objtrans.lock.
	Lock bool `yaml:"lock,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = ".objtrans.yaml"

// Defaults.
const (
	DefaultTimeout   = 2 * time.Minute
	DefaultRetries   = 2
	DefaultOutputDir = "."
)

var apiVersionRe = regexp.MustCompile(`^\d+\.0$`)

// Default returns a config holding only defaults.
func Default() *File {
	f := &File{}
	f.applyDefaults()
	return f
}

// Load loads and validates .objtrans.yaml from the given directory.
// Returns nil if no .objtrans.yaml exists.
func Load(rootDir string) (*File, error) {
	f, err := LoadPath(filepath.Join(rootDir, FileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return f, err
}

// LoadPath loads and validates the config file at path.
func LoadPath(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.APIVersion == "" {
		f.APIVersion = metadata.DefaultAPIVersion
	}
	if f.Workbook == "" {
		f.Workbook = workbook.DefaultFileName
	}
	if f.OutputDir == "" {
		f.OutputDir = DefaultOutputDir
	}
	if f.Timeout == 0 {
		f.Timeout = DefaultTimeout
	}
	if f.Retries == nil {
		n := DefaultRetries
		f.Retries = &n
	}
}

func (f *File) validate() error {
	if f.InstanceURL != "" {
		if err := validateURL(f.InstanceURL); err != nil {
			return fmt.Errorf("instance_url: %w", err)
		}
	}
	if !apiVersionRe.MatchString(f.APIVersion) {
		return fmt.Errorf("api_version %q: want <major>.0, e.g. %s", f.APIVersion, metadata.DefaultAPIVersion)
	}
	if f.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", f.Concurrency)
	}
	if f.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", f.Timeout)
	}
	if *f.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", *f.Retries)
	}
	if err := locale.Validate(f.Locales); err != nil {
		return err
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%q: scheme must be http or https", s)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", s)
	}
	return nil
}

// WorkbookPath returns the path export and retrieve write to.
func (f *File) WorkbookPath() string {
	return filepath.Join(f.OutputDir, f.Workbook)
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

// Environment variables consulted by ResolveConnection.
const (
	EnvInstanceURL = "OBJTRANS_INSTANCE_URL"
	EnvSessionID   = "OBJTRANS_SESSION_ID"
	EnvAPIVersion  = "OBJTRANS_API_VERSION"
)

// Connection identifies the org session.
type Connection struct {
	InstanceURL string
	SessionID   string
	APIVersion  string
}

// ResolveConnection merges flags, environment and file, in that order of
// precedence. f may be nil.
func ResolveConnection(f *File, flags Connection) (Connection, error) {
	if f == nil {
		f = Default()
	}
	c := Connection{InstanceURL: f.InstanceURL, APIVersion: f.APIVersion}
	for _, o := range []Connection{
		{InstanceURL: os.Getenv(EnvInstanceURL), SessionID: os.Getenv(EnvSessionID), APIVersion: os.Getenv(EnvAPIVersion)},
		flags,
	} {
		if o.InstanceURL != "" {
			c.InstanceURL = o.InstanceURL
		}
		if o.SessionID != "" {
			c.SessionID = o.SessionID
		}
		if o.APIVersion != "" {
			c.APIVersion = o.APIVersion
		}
	}

	if c.InstanceURL == "" {
		return c, fmt.Errorf("no instance URL: set --instance-url, %s or instance_url in %s", EnvInstanceURL, FileName)
	}
	if err := validateURL(c.InstanceURL); err != nil {
		return c, fmt.Errorf("instance URL: %w", err)
	}
	if c.SessionID == "" {
		return c, fmt.Errorf("no session id: set --session-id or %s", EnvSessionID)
	}
	if !apiVersionRe.MatchString(c.APIVersion) {
		return c, fmt.Errorf("api version %q: want <major>.0", c.APIVersion)
	}
	return c, nil
}
