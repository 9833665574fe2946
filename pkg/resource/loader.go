package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// Loader loads a clip by reference: a filesystem path or an s3:// URL.
type Loader interface {
	Load(ctx context.Context, ref string) (*Clip, error)
}

// FSLoader loads clips from the local filesystem. Relative references are
// resolved against Root.
type FSLoader struct {
	Root string
}

// NewFSLoader creates a loader rooted at root. An empty root resolves
// relative paths against the working directory.
func NewFSLoader(root string) *FSLoader {
	return &FSLoader{Root: root}
}

func (l *FSLoader) resolve(ref string) string {
	ref = strings.TrimPrefix(ref, "file://")
	if filepath.IsAbs(ref) || l.Root == "" {
		return filepath.Clean(ref)
	}
	return filepath.Join(l.Root, ref)
}

// Load reads and decodes the clip at ref.
func (l *FSLoader) Load(ctx context.Context, ref string) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := l.resolve(ref)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read clip %s: %w", path, err)
	}

	clip, err := DecodeClip(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	logger.Debug("Clip loaded", logger.KeyPath, path, logger.KeyCount, len(clip.Curves))
	return clip, nil
}

// Router dispatches s3:// references to S3 and everything else to FS.
type Router struct {
	FS Loader
	S3 Loader
}

// Load implements Loader and records a span per load.
func (r *Router) Load(ctx context.Context, ref string) (*Clip, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanResourceLoad)
	defer span.End()
	span.SetAttributes(telemetry.Resource(ref))

	var (
		clip *Clip
		err  error
	)
	switch {
	case IsS3URI(ref):
		if r.S3 == nil {
			err = fmt.Errorf("load %s: s3 resources are not configured", ref)
			break
		}
		clip, err = r.S3.Load(ctx, ref)
	case r.FS != nil:
		clip, err = r.FS.Load(ctx, ref)
	default:
		err = fmt.Errorf("load %s: filesystem resources are not configured", ref)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return clip, nil
}
