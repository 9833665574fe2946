package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/resource"
)

// ScanResult summarises one Scan.
type ScanResult struct {
	Root     string        `json:"root"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Scanner indexes clip files into a Store.
type Scanner struct {
	store Store
	s3    *resource.S3Loader
}

// NewScanner creates a scanner writing to store. s3 may be nil, in which
// case s3:// roots are rejected.
func NewScanner(store Store, s3 *resource.S3Loader) *Scanner {
	return &Scanner{store: store, s3: s3}
}

// EntryID returns the id for a clip found at path: the clip's own id, or a
// stable id derived from the path.
func EntryID(clip *resource.Clip, path string) string {
	if clip.ID != "" {
		return clip.ID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
}

func entryFor(clip *resource.Clip, path string) *Entry {
	return &Entry{
		ID:      EntryID(clip, path),
		Name:    clip.DisplayName(),
		Kind:    clip.Kind,
		Path:    path,
		RigType: clip.RigType,
	}
}

// Scan walks root (a directory or s3://bucket/prefix) and puts an entry for
// every decodable clip. Undecodable files are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	if root == "" {
		return nil, fmt.Errorf("no library path configured")
	}
	start := time.Now()
	res := &ScanResult{Root: root}

	var err error
	if resource.IsS3URI(root) {
		err = s.scanS3(ctx, root, res)
	} else {
		err = s.scanDir(ctx, root, res)
	}
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	logger.Info("Library scanned",
		logger.KeyPath, root,
		logger.KeyCount, res.Indexed,
		"skipped", res.Skipped,
		logger.KeyDurationMs, float64(res.Duration.Microseconds())/1000.0)
	return res, nil
}

func (s *Scanner) scanDir(ctx context.Context, root string, res *ScanResult) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !resource.IsClipFile(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		clip, err := resource.DecodeClip(data, resource.FormatOf(path))
		if err != nil {
			logger.Warn("Skipping clip", logger.KeyPath, path, logger.KeyError, err)
			res.Skipped++
			return nil
		}
		if err := s.store.Put(ctx, entryFor(clip, path)); err != nil {
			return err
		}
		res.Indexed++
		return nil
	})
}

func (s *Scanner) scanS3(ctx context.Context, root string, res *ScanResult) error {
	if s.s3 == nil {
		return fmt.Errorf("cannot scan %s: S3 is not configured", root)
	}
	objects, err := s.s3.List(ctx, root)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		clip, err := s.s3.Load(ctx, obj.URI)
		if err != nil {
			logger.Warn("Skipping clip", logger.KeyPath, obj.URI, logger.KeyError, err)
			res.Skipped++
			continue
		}
		if err := s.store.Put(ctx, entryFor(clip, obj.URI)); err != nil {
			return err
		}
		res.Indexed++
	}
	return nil
}
