// Package cluster provides the core distributed system types and the HTTP
// transport helpers shared by Trough's master and local sync controllers.
// See doc.go for complete package documentation.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BulkStoreEntry describes one segment file as listed from the bulk
// store (a WebHDFS-compatible remote filesystem). It is the unit
// MasterSyncController.GetSegmentFileList works over.
type BulkStoreEntry struct {
	// Path is the remote path of the segment file, e.g.
	// "/trough/segments/228188.sqlite".
	Path string `json:"path"`

	// Length is the file's size in bytes, used to compute per-host load
	// and MinAcceptableLoadRatio.
	Length int64 `json:"length"`
}

// SegmentID derives the segment identifier from the entry's remote path
// (the file's base name without its .sqlite extension).
func (e BulkStoreEntry) SegmentID() string {
	path := e.Path
	if idx := lastSlash(path); idx >= 0 {
		path = path[idx+1:]
	}
	return trimSQLiteSuffix(path)
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func trimSQLiteSuffix(s string) string {
	const suffix = ".sqlite"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// ProvisionRequest is POSTed by the master to a trough-nodes member's
// trough-sync-local to request that a segment be made writable there.
type ProvisionRequest struct {
	Segment string `json:"segment"`
}

// ProvisionResponse carries the URL a client should write to once a
// segment has been provisioned for writing.
type ProvisionResponse struct {
	WriterURL string `json:"writer_url"`
}

// AssignmentUpdate describes one committed assignment (segment, host,
// bytes). It is not what the change-feed websocket sends: the master's
// changefeed.Hub pushes changefeed.Delta values.
type AssignmentUpdate struct {
	Segment string `json:"segment"`
	Host    string `json:"host"`
	Bytes   int64  `json:"bytes"`
}

// httpClient is the shared HTTP client used for all cluster communication,
// kept as a package-level variable so connections are pooled across calls.
var httpClient = &http.Client{Timeout: 5 * time.Second}

// PostJSON sends a JSON-encoded POST request to url and decodes the JSON
// response into out (ignored if nil). Used for controller-to-controller
// calls such as requesting that a peer provision a segment.
func PostJSON(ctx context.Context, url string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetJSON sends a GET request to url and decodes the JSON response into
// out. Used for health checks and segment-list queries.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
