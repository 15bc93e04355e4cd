package config

import (
	"fmt"
	"strings"

	"webtlo/internal/services"
)

// Validate ensures the configuration is usable. Credentials for the forum are
// checked separately by RequireTrackerCredentials because only some jobs need
// them.
func (c *Config) Validate() error {
	if err := c.validateClients(); err != nil {
		return err
	}
	if err := c.validateSubsections(); err != nil {
		return err
	}
	if err := c.validateKeepers(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateClients() error {
	seen := make(map[string]struct{}, len(c.Clients))
	for i, client := range c.Clients {
		if client.ID == "" {
			return invalid("clients[%d].id must be set", i)
		}
		if _, dup := seen[client.ID]; dup {
			return invalid("clients[%d].id %q is duplicated", i, client.ID)
		}
		seen[client.ID] = struct{}{}
		if client.Kind == "" {
			return invalid("clients[%d].kind must be set", i)
		}
		if client.Host == "" {
			return invalid("clients[%d].host must be set", i)
		}
		if client.Port <= 0 || client.Port > 65535 {
			return invalid("clients[%d].port must be between 1 and 65535", i)
		}
	}
	return nil
}

func (c *Config) validateSubsections() error {
	seen := make(map[int64]struct{}, len(c.Subsections))
	for i, sub := range c.Subsections {
		if sub.ID <= 0 {
			return invalid("subsections[%d].id must be positive", i)
		}
		if _, dup := seen[sub.ID]; dup {
			return invalid("subsections[%d].id %d is duplicated", i, sub.ID)
		}
		seen[sub.ID] = struct{}{}
		if sub.Client == "" {
			continue
		}
		if _, ok := c.Client(sub.Client); !ok {
			return invalid("subsections[%d].client %q does not match any configured client", i, sub.Client)
		}
	}
	return nil
}

func (c *Config) validateKeepers() error {
	switch c.Keepers.DeleteScope {
	case DeleteScopeScanned, DeleteScopeGlobal:
	default:
		return invalid("keepers.delete_scope must be %q or %q", DeleteScopeScanned, DeleteScopeGlobal)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("logging.format must be console or json")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", services.ErrConfiguration, fmt.Sprintf(format, args...))
}
