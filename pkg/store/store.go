package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"proxycrawl/internal/logger"
	"proxycrawl/pkg/scraper"
)

// Store keeps the validated proxy list as plain text, one host:port per line.
// Every Persist replaces the previous content.
type Store struct {
	fs     afero.Fs
	path   string
	mu     sync.RWMutex
	logger *logger.Logger
}

// New returns a Store on the OS file system
func New(path string) *Store {
	return NewWithFs(afero.NewOsFs(), path)
}

func NewWithFs(fs afero.Fs, path string) *Store {
	return &Store{
		fs:     fs,
		path:   path,
		logger: logger.New("store"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// defaultMode matches a plain create under the usual umask
const defaultMode os.FileMode = 0644

// Persist writes proxies in order. The content goes to a temporary file that
// is renamed over the target, so readers see either the old or the new list.
// The file keeps its previous permissions and a symlinked path is written
// through to its target.
func (s *Store) Persist(proxies []scraper.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.resolve()
	mode := defaultMode
	if info, err := s.fs.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(target)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create proxy list directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary proxy list: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, p := range proxies {
		if _, err := w.WriteString(p.String() + "\n"); err != nil {
			tmp.Close()
			s.fs.Remove(tmpName)
			return fmt.Errorf("failed to write proxy list: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write proxy list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close proxy list: %w", err)
	}

	if err := s.fs.Chmod(tmpName, mode); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to set proxy list permissions: %w", err)
	}

	if err := s.fs.Rename(tmpName, target); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace proxy list: %w", err)
	}

	s.logger.InfoBg("%s written with %d proxies", s.path, len(proxies))
	return nil
}

// resolve follows a symlinked path, on file systems that support links
func (s *Store) resolve() string {
	reader, ok := s.fs.(afero.LinkReader)
	if !ok {
		return s.path
	}

	link, err := reader.ReadlinkIfPossible(s.path)
	if err != nil {
		return s.path
	}
	if !filepath.IsAbs(link) {
		link = filepath.Join(filepath.Dir(s.path), link)
	}
	return link
}

// Load returns the stored proxies in file order. A missing file is an error
// wrapping fs.ErrNotExist.
func (s *Store) Load() ([]scraper.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.fs.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer file.Close()

	proxies := []scraper.Candidate{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		proxies = append(proxies, scraper.Candidate(strings.TrimRight(scanner.Text(), " \t\r")))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}

	s.logger.DebugBg("Loaded %d proxies from %s", len(proxies), s.path)
	return proxies, nil
}
