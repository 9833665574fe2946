package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/api"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/config"
	"github.com/marmos91/animbridge/pkg/host"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/scene"
	"golang.org/x/sync/errgroup"
)

// daemon is everything `animbridge start` runs.
type daemon struct {
	host  *host.Service
	api   *api.Server
	store catalog.Store

	scanOnStart bool
}

// newDaemon builds the host and its collaborators from cfg. Close must be
// called once the daemon has stopped.
func newDaemon(ctx context.Context, cfg *config.Config) (*daemon, error) {
	sc, err := loadScene(cfg.Host.SceneFile)
	if err != nil {
		return nil, err
	}

	store, err := catalog.Open(&cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	logger.Info("Catalog opened", "backend", string(cfg.Catalog.Backend))

	router := &resource.Router{FS: resource.NewFSLoader(cfg.Resources.Root)}

	var s3Loader *resource.S3Loader
	if s3cfg, ok := cfg.S3Config(); ok {
		client, err := resource.NewS3Client(ctx, s3cfg)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		s3Loader = resource.NewS3Loader(client, s3cfg.MaxClipSize)
		router.S3 = s3Loader
		logger.Info("S3 resources enabled", "region", s3cfg.Region, "endpoint", s3cfg.Endpoint)
	}

	svc, err := host.New(cfg.HostConfig(), host.Deps{
		Scene:       sc,
		Loader:      router,
		Catalog:     store,
		Scanner:     catalog.NewScanner(store, s3Loader),
		LibraryRoot: cfg.Catalog.LibraryPath,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	d := &daemon{
		host:        svc,
		store:       store,
		scanOnStart: cfg.Catalog.ScanOnStart && cfg.Catalog.LibraryPath != "",
	}
	if cfg.API.IsEnabled() {
		d.api = api.NewServer(cfg.API, svc)
	}
	return d, nil
}

func loadScene(path string) (*scene.Scene, error) {
	if path == "" {
		return scene.New(), nil
	}
	sc, err := scene.LoadFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("Scene loaded", logger.KeyPath, path, "armatures", len(sc.Armatures()))
	return sc, nil
}

// Serve runs the host, the API server and the startup scan until ctx is
// cancelled or one of them fails.
func (d *daemon) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.host.Run(gctx)
	})

	if d.api != nil {
		g.Go(func() error {
			return d.api.Start(gctx)
		})
	}

	if d.scanOnStart {
		g.Go(func() error {
			res, err := d.host.Scan(gctx, "")
			switch {
			case err == nil:
				logger.Info("Library scanned", "root", res.Root, "indexed", res.Indexed, "skipped", res.Skipped)
			case errors.Is(err, context.Canceled):
			default:
				// The daemon still serves ids already in the catalog.
				logger.Warn("Library scan failed", logger.KeyError, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close releases the catalog.
func (d *daemon) Close() error {
	return d.store.Close()
}
