package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/animbridge/pkg/resource"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if err := cfg.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	if resource.IsS3URI(cfg.Catalog.LibraryPath) && !cfg.Resources.S3.Enabled {
		return fmt.Errorf("catalog.library_path %q needs resources.s3.enabled", cfg.Catalog.LibraryPath)
	}

	if cfg.API.IsEnabled() && cfg.API.Port == cfg.Socket.Port && cfg.API.Host == cfg.Socket.Host {
		return fmt.Errorf("api.port and socket.port must differ (both %d)", cfg.Socket.Port)
	}
	return nil
}
