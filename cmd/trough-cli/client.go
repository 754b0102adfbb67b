package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreamware/trough/internal/store"
)

// Client talks to a trough-sync-master for cluster-wide queries and
// directly to individual trough-sync-local agents to run SQL against a
// segment's readable or writable copy.
type Client struct {
	masterURL string
	http      *http.Client
}

// NewClient returns a Client pointed at masterURL (e.g.
// "http://localhost:8080").
func NewClient(masterURL string) *Client {
	return &Client{
		masterURL: strings.TrimRight(masterURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// ReadableSegments returns the distinct set of segment ids currently
// advertised by any trough-read row in the cluster.
func (c *Client) ReadableSegments(ctx context.Context) ([]string, error) {
	readers, err := c.hosts(ctx, "trough-read")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(readers))
	var segments []string
	for _, r := range readers {
		if r.Segment != "" && !seen[r.Segment] {
			seen[r.Segment] = true
			segments = append(segments, r.Segment)
		}
	}
	return segments, nil
}

// ReadableCopies returns every trough-read row advertising segmentID.
func (c *Client) ReadableCopies(ctx context.Context, segmentID string) ([]store.ServiceRecord, error) {
	readers, err := c.hosts(ctx, "trough-read")
	if err != nil {
		return nil, err
	}
	var copies []store.ServiceRecord
	for _, r := range readers {
		if r.Segment == segmentID {
			copies = append(copies, r)
		}
	}
	return copies, nil
}

func (c *Client) hosts(ctx context.Context, role string) ([]store.ServiceRecord, error) {
	var out []store.ServiceRecord
	u := c.masterURL + "/hosts?role=" + url.QueryEscape(role)
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProvisionWritable asks the master to elect (or reuse) a writer for
// segmentID and returns its base URL.
func (c *Client) ProvisionWritable(ctx context.Context, segmentID string) (string, error) {
	var resp struct {
		WriterURL string `json:"writer_url"`
	}
	u := fmt.Sprintf("%s/segments/%s/provision", c.masterURL, url.PathEscape(segmentID))
	if err := c.postJSON(ctx, u, nil, &resp); err != nil {
		return "", err
	}
	return resp.WriterURL, nil
}

// Query runs a read-only SQL statement against segmentID on the given
// host/port (typically one of ReadableCopies' results).
func (c *Client) Query(ctx context.Context, host string, port int, segmentID, sql string) ([]map[string]any, error) {
	var rows []map[string]any
	u := fmt.Sprintf("http://%s:%d/segment/%s/query?sql=%s", host, port, url.PathEscape(segmentID), url.QueryEscape(sql))
	if err := c.getJSON(ctx, u, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec runs a write SQL statement against segmentID on the given
// host/port and returns the number of rows affected.
func (c *Client) Exec(ctx context.Context, host string, port int, segmentID, stmt string) (int64, error) {
	var resp struct {
		RowsAffected int64 `json:"rows_affected"`
	}
	u := fmt.Sprintf("http://%s:%d/segment/%s/exec", host, port, url.PathEscape(segmentID))
	if err := c.postJSON(ctx, u, strings.NewReader(stmt), &resp); err != nil {
		return 0, err
	}
	return resp.RowsAffected, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, u string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL, resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// hostPort splits a "host:port" writer URL segment of the form
// returned by ProvisionWritable's http://host:port/ shape.
func hostPort(writerURL string) (string, int, error) {
	u, err := url.Parse(writerURL)
	if err != nil {
		return "", 0, fmt.Errorf("parse writer url %q: %w", writerURL, err)
	}
	host := u.Hostname()
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return "", 0, fmt.Errorf("parse writer url %q: bad port: %w", writerURL, err)
	}
	return host, port, nil
}
