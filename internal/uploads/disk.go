package uploads

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Disk stores objects under a root directory and serves them back through the
// HTTP server's /files route.
type Disk struct {
	root      string
	publicURL string
}

func NewDisk(root, publicURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Disk{root: root, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (d *Disk) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("empty object key")
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func (d *Disk) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(p)
		return err
	}
	return nil
}

func (d *Disk) Remove(ctx context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (d *Disk) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	base, err := d.path(prefix)
	if err != nil {
		return nil, err
	}
	err = filepath.WalkDir(base, func(p string, de os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if de.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (d *Disk) PublicURL(key string) string {
	return d.publicURL + "/files/" + strings.TrimPrefix(key, "/")
}

// Root exposes the directory for the server's static file route.
func (d *Disk) Root() string { return d.root }
