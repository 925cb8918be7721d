package params

import (
	_ "embed"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mnemo-ai/mnemo/model"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

// DefaultsCache loads the system-default parameters once per process and
// serves them to every request. The cache is constructor-injected into the
// loader rather than hidden behind a package global.
type DefaultsCache struct {
	path string
	log  *slog.Logger

	once     sync.Once
	defaults model.UserParameters
}

// NewDefaultsCache creates a cache reading the defaults document from path.
// An empty path uses the document embedded in the binary.
func NewDefaultsCache(path string, logger *slog.Logger) *DefaultsCache {
	return &DefaultsCache{path: path, log: logger}
}

// Get returns the system defaults, loading them on first use. When the
// configuration source cannot be read or validated the hard-coded defaults
// are served instead; retrieval must degrade, not abort.
func (c *DefaultsCache) Get() model.UserParameters {
	c.once.Do(func() {
		c.defaults = c.load()
	})
	return c.defaults
}

func (c *DefaultsCache) load() model.UserParameters {
	data := embeddedDefaults
	if c.path != "" {
		fileData, err := os.ReadFile(c.path)
		if err != nil {
			c.log.Warn("Failed to read defaults file, using built-in defaults",
				slog.String("path", c.path), slog.String("error", err.Error()))
			return model.DefaultUserParameters()
		}
		data = fileData
	}

	loaded := model.DefaultUserParameters()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		c.log.Warn("Failed to parse defaults document, using built-in defaults",
			slog.String("error", err.Error()))
		return model.DefaultUserParameters()
	}

	if err := loaded.Validate(); err != nil {
		c.log.Warn("Defaults document failed validation, using built-in defaults",
			slog.String("error", err.Error()))
		return model.DefaultUserParameters()
	}

	return loaded
}
