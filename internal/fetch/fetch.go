// Package fetch downloads remote archives into a local cache so the
// analyzer can accept http(s) URLs as well as filesystem paths.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Fetcher downloads archives over HTTP and caches them by URL.
type Fetcher struct {
	cacheDir string
	client   *http.Client
}

// New creates a Fetcher using the default cache directory.
func New() (*Fetcher, error) {
	cacheDir, err := CacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache dir: %w", err)
	}
	return &Fetcher{
		cacheDir: cacheDir,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// CacheDir returns the archive cache directory.
// Priority: $JARMAP_CACHE_DIR -> $XDG_CACHE_HOME/jarmap -> ~/.cache/jarmap
func CacheDir() (string, error) {
	if dir := os.Getenv("JARMAP_CACHE_DIR"); dir != "" {
		return dir, nil
	}

	if runtime.GOOS != "windows" {
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			return filepath.Join(xdgCache, "jarmap"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Local", "jarmap"), nil
	}

	return filepath.Join(home, ".cache", "jarmap"), nil
}

// IsRemote reports whether the archive reference is an HTTP(S) URL rather
// than a filesystem path.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Fetch returns a local path for the archive at rawURL, downloading it
// into the cache when missing. A non-empty checksum is the expected SHA-256
// of the archive and is verified for both cached and fresh copies.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, checksum string) (string, error) {
	dest := f.cachedPath(rawURL)

	if _, err := os.Stat(dest); err == nil {
		if checksum != "" {
			if err := verifyChecksum(dest, checksum); err != nil {
				log.Printf("[fetch] cached copy failed verification, re-downloading: %v", err)
			} else {
				log.Printf("[fetch] using cached archive: %s", dest)
				return dest, nil
			}
		} else {
			log.Printf("[fetch] using cached archive: %s", dest)
			return dest, nil
		}
	}

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(f.cacheDir, "jarmap-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	log.Printf("[fetch] downloading %s...", rawURL)
	if err := f.download(ctx, rawURL, tmpFile); err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if checksum != "" {
		if err := verifyChecksum(tmpFile.Name(), checksum); err != nil {
			return "", fmt.Errorf("checksum verification failed: %w", err)
		}
	}

	if err := os.Rename(tmpFile.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move archive into cache: %w", err)
	}
	log.Printf("[fetch] cached %s", dest)
	return dest, nil
}

// cachedPath derives a stable cache file name from the URL: a hash prefix
// keeps distinct URLs with the same base name apart.
func (f *Fetcher) cachedPath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	base := "archive.jar"
	if u, err := url.Parse(rawURL); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		base = path.Base(u.Path)
	}
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])+"-"+base)
}

// download fetches the URL into dest with retries.
func (f *Fetcher) download(ctx context.Context, rawURL string, dest *os.File) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt*attempt) * time.Second
			log.Printf("[fetch] retry %d/%d after %v...", attempt, maxRetries, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			continue
		}

		if _, err := dest.Seek(0, 0); err != nil {
			resp.Body.Close()
			return err
		}
		if err := dest.Truncate(0); err != nil {
			resp.Body.Close()
			return err
		}

		_, err = io.Copy(dest, resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return nil
	}

	return fmt.Errorf("download failed after %d attempts: %w", maxRetries, lastErr)
}

// verifyChecksum verifies the SHA-256 checksum of a file.
func verifyChecksum(filePath, expected string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
