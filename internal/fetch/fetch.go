// Package fetch downloads scan report files into the source directory.
//
// The retrieval side is deliberately best-effort: the merge engine's ledger
// makes re-ingestion idempotent, so fetch only promises at-least-once
// delivery of report files. Downloads are rate-limited and run with bounded
// concurrency; zip archives are extracted in place; files already present
// are skipped.
package fetch

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configures a fetch run.
type Options struct {
	// DestDir receives downloaded report files.
	DestDir string

	// Concurrency bounds simultaneous downloads. Default 4.
	Concurrency int

	// RequestsPerSecond limits the request rate. Default 2.
	RequestsPerSecond float64

	// AuthToken, when set, is sent as a bearer token.
	AuthToken string

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// Result summarizes a fetch run.
type Result struct {
	mu sync.Mutex

	// Downloaded counts files saved directly.
	Downloaded int

	// Extracted counts files unpacked from zip archives.
	Extracted int

	// Skipped counts files already present in the destination.
	Skipped int

	// Failed counts URLs that could not be retrieved.
	Failed int
}

var (
	dispositionRE = regexp.MustCompile(`filename="?([^";]+)"?`)
	unsafeRE      = regexp.MustCompile(`[\\/*?:"<>|]`)
)

// ReadURLList reads a newline-delimited link list. Blank lines and lines
// starting with # are ignored; trailing punctuation that tends to cling to
// links pasted out of mail bodies is stripped.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening link list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, strings.TrimRight(line, ".,)>]"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading link list: %w", err)
	}
	return urls, nil
}

// Run downloads every URL into the destination directory.
//
// Individual failures are counted and logged, never fatal to the run; the
// returned error is reserved for setup problems and context cancellation.
func Run(ctx context.Context, urls []string, opts Options) (*Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if err := os.MkdirAll(opts.DestDir, 0755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	result := &Result{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if err := fetchOne(ctx, url, opts, result); err != nil {
				log.Printf("[FETCH] %s: %v", url, err)
				result.add(func(r *Result) { r.Failed++ })
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Result) add(f func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(r)
}

func fetchOne(ctx context.Context, url string, opts Options, result *Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.AuthToken)
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	name := fileName(url, resp.Header.Get("Content-Disposition"))
	dest := filepath.Join(opts.DestDir, name)
	if _, err := os.Stat(dest); err == nil {
		result.add(func(r *Result) { r.Skipped++ })
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(name), ".zip") {
		n, err := extractZip(body, opts.DestDir)
		if err != nil {
			return fmt.Errorf("extracting %s: %w", name, err)
		}
		result.add(func(r *Result) { r.Extracted += n })
		log.Printf("[FETCH] extracted %d file(s) from %s", n, name)
		return nil
	}

	if err := os.WriteFile(dest, body, 0644); err != nil {
		return err
	}
	result.add(func(r *Result) { r.Downloaded++ })
	log.Printf("[FETCH] downloaded %s", name)
	return nil
}

// fileName picks the local file name: Content-Disposition when present,
// otherwise the last URL path segment. Report servers hand out extensionless
// download paths for archives, so a missing extension defaults to .zip.
func fileName(url, disposition string) string {
	name := ""
	if m := dispositionRE.FindStringSubmatch(disposition); m != nil {
		name = m[1]
	}
	if name == "" {
		name = path.Base(strings.TrimRight(url, "/"))
		if !strings.Contains(name, ".") {
			name += ".zip"
		}
	}
	return unsafeRE.ReplaceAllString(name, "")
}

// extractZip unpacks an archive into destDir. Entry paths are flattened to
// their base name, so a crafted archive cannot write outside destDir.
// Entries whose base name already exists are skipped.
func extractZip(data []byte, destDir string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	extracted := 0
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := unsafeRE.ReplaceAllString(path.Base(entry.Name), "")
		if name == "" {
			continue
		}
		dest := filepath.Join(destDir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return extracted, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return extracted, err
		}
		if err := os.WriteFile(dest, content, 0644); err != nil {
			return extracted, err
		}
		extracted++
	}
	return extracted, nil
}
