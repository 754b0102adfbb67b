// Package bulk implements clients for the durable bulk store that backs
// every segment's canonical copy: a WebHDFS-compatible HTTP client for
// production, and a local-filesystem client for tests and single-node
// deployments. See doc.go for complete package documentation.
package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dreamware/trough/internal/cluster"
)

// Store lists and reads segment files from the bulk store.
type Store interface {
	// ListSegments returns every segment file currently present in the
	// bulk store.
	ListSegments(ctx context.Context) ([]cluster.BulkStoreEntry, error)

	// Open returns a reader for the segment file at path. Callers must
	// close the returned reader.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// WebHDFSStore talks to a WebHDFS-compatible REST endpoint using the
// standard LISTSTATUS/OPEN operations.
type WebHDFSStore struct {
	baseURL string
	root    string
	client  *http.Client
}

// NewWebHDFSStore returns a Store backed by the WebHDFS gateway at
// baseURL (e.g. "http://namenode:14000/webhdfs/v1"), listing segment
// files under root.
func NewWebHDFSStore(baseURL, root string) *WebHDFSStore {
	return &WebHDFSStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		root:    "/" + strings.Trim(root, "/"),
		client:  &http.Client{Timeout: 30_000_000_000}, // 30s
	}
}

type webhdfsListResponse struct {
	FileStatuses struct {
		FileStatus []struct {
			PathSuffix string `json:"pathSuffix"`
			Length     int64  `json:"length"`
			Type       string `json:"type"`
		} `json:"FileStatus"`
	} `json:"FileStatuses"`
}

// ListSegments issues a LISTSTATUS call against the configured root and
// returns every *.sqlite file found there.
func (w *WebHDFSStore) ListSegments(ctx context.Context) ([]cluster.BulkStoreEntry, error) {
	reqURL := w.baseURL + w.root + "?op=LISTSTATUS"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bulk: build LISTSTATUS request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk: LISTSTATUS %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bulk: LISTSTATUS %s: status %d", reqURL, resp.StatusCode)
	}

	var parsed webhdfsListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("bulk: decode LISTSTATUS response: %w", err)
	}

	var entries []cluster.BulkStoreEntry
	for _, fs := range parsed.FileStatuses.FileStatus {
		if fs.Type != "FILE" || !strings.HasSuffix(fs.PathSuffix, ".sqlite") {
			continue
		}
		entries = append(entries, cluster.BulkStoreEntry{
			Path:   w.root + "/" + fs.PathSuffix,
			Length: fs.Length,
		})
	}
	return entries, nil
}

// Open issues an OPEN call for path and returns a streaming reader over
// the response body.
func (w *WebHDFSStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	reqURL := w.baseURL + path + "?op=OPEN"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bulk: build OPEN request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk: OPEN %s: %w", reqURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("bulk: OPEN %s: status %d", reqURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// LocalStore serves segment files from a directory on the local
// filesystem, standing in for a WebHDFS gateway in tests and single-node
// deployments.
type LocalStore struct {
	root string
}

// NewLocalStore returns a Store backed by the directory at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// ListSegments walks root and returns every *.sqlite file found.
func (l *LocalStore) ListSegments(ctx context.Context) ([]cluster.BulkStoreEntry, error) {
	var entries []cluster.BulkStoreEntry
	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sqlite") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		entries = append(entries, cluster.BulkStoreEntry{
			Path:   "/" + filepath.ToSlash(rel),
			Length: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk: list %s: %w", l.root, err)
	}
	return entries, nil
}

// Open opens the segment file at path (relative to root) for reading.
func (l *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	clean, err := url.PathUnescape(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("bulk: unescape path %s: %w", path, err)
	}
	f, err := os.Open(filepath.Join(l.root, clean))
	if err != nil {
		return nil, fmt.Errorf("bulk: open %s: %w", path, err)
	}
	return f, nil
}
