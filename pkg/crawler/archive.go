package crawler

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const archiveName = "data.zip"

// ErrUnsafeArchive is returned for archives with entries outside the destination
var ErrUnsafeArchive = errors.New("archive entry escapes destination")

// DownloadAndUnzip fetches the zip at archiveURL into dest/data.zip, extracts
// it into dest and removes the zip
func (c *Crawler) DownloadAndUnzip(ctx context.Context, archiveURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file. Status code: %d", resp.StatusCode)
	}

	zipPath := filepath.Join(dest, archiveName)
	defer c.fs.Remove(zipPath)

	if err := c.writeFile(zipPath, resp.Body); err != nil {
		return err
	}

	return c.extract(zipPath, dest)
}

func (c *Crawler) writeFile(path string, r io.Reader) error {
	f, err := c.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

func (c *Crawler) extract(zipPath, dest string) error {
	f, err := c.fs.Open(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, entry := range zr.File {
		target := filepath.Join(dest, entry.Name)
		if !strings.HasPrefix(target+string(os.PathSeparator), root) {
			return fmt.Errorf("%s: %w", entry.Name, ErrUnsafeArchive)
		}
	}

	for _, entry := range zr.File {
		if err := c.extractEntry(entry, filepath.Join(dest, entry.Name)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Crawler) extractEntry(entry *zip.File, target string) error {
	if entry.FileInfo().IsDir() {
		return c.fs.MkdirAll(target, 0755)
	}

	if err := c.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entry.Name, err)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	return c.writeFile(target, rc)
}

// ensureDir creates path, tolerating an existing directory
func (c *Crawler) ensureDir(path string) error {
	exists, err := afero.DirExists(c.fs, path)
	if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	if exists {
		c.logger.DebugBg("The directory '%s' already exist.", path)
		return nil
	}

	if err := c.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	c.logger.DebugBg("Directory '%s' created successfully.", path)
	return nil
}

// ListDirectory returns the entry names of dir. A missing directory yields an
// empty list.
func (c *Crawler) ListDirectory(dir string) ([]string, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.WarnBg("The directory '%s' does not exist.", dir)
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
