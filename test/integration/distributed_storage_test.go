// Package integration exercises the real trough-sync-master and
// trough-sync-local binaries as subprocesses, hitting their HTTP
// surfaces the way an operator or trough-cli would. Each binary owns
// its own coordination store, so these scenarios are scoped to one
// binary at a time rather than asserting cross-process consistency.
package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	masterBin = "./bin/trough-sync-master"
	localBin  = "./bin/trough-sync-local"
)

// proc wraps a running binary under test and its base HTTP URL.
type proc struct {
	t       *testing.T
	cmd     *exec.Cmd
	baseURL string
	client  *http.Client
}

func startBinary(t *testing.T, bin string, addr string, env []string) *proc {
	t.Helper()

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start %s: %v", bin, err)
	}

	p := &proc{t: t, cmd: cmd, baseURL: "http://" + addr, client: &http.Client{Timeout: 5 * time.Second}}
	t.Cleanup(p.stop)

	if err := p.waitHealthy(); err != nil {
		t.Fatalf("%s never became healthy: %v", bin, err)
	}
	return p
}

func (p *proc) stop() {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
}

func (p *proc) waitHealthy() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s/health", p.baseURL)
		default:
			resp, err := p.client.Get(p.baseURL + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (p *proc) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := p.client.Get(p.baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, p.baseURL + path
}

func requireBinaries(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	for _, bin := range []string{masterBin, localBin} {
		if _, err := os.Stat(bin); os.IsNotExist(err) {
			t.Skipf("skipping integration test: %s not found (build cmd/%s first)", bin, filepath.Base(bin))
		}
	}
}

// TestMasterHTTPSurface starts a real trough-sync-master against a
// scratch bolt store and bulk directory, then exercises the endpoints
// documented for operators and trough-cli.
func TestMasterHTTPSurface(t *testing.T) {
	requireBinaries(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "bulk"), 0o755); err != nil {
		t.Fatalf("mkdir bulk dir: %v", err)
	}
	env := []string{
		"TROUGH_NODE_ID=master-1",
		"TROUGH_STORE_BOLT_PATH=" + filepath.Join(dir, "store.bolt"),
		"TROUGH_BULK_STORE_URL=",
		"TROUGH_LOCAL_SEGMENT_ROOT=" + filepath.Join(dir, "bulk"),
		"TROUGH_HTTP_ADDR=127.0.0.1:18080",
		"TROUGH_METRICS_ADDR=127.0.0.1:18090",
		"TROUGH_SYNC_PORT=18080",
		"TROUGH_WRITE_PORT=18082",
		"TROUGH_ELECTION_CYCLE=200ms",
	}

	p := startBinary(t, masterBin, "127.0.0.1:18080", env)

	t.Run("hosts defaults to trough-nodes role", func(t *testing.T) {
		resp, url := p.get(t, "/hosts")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", url, resp.StatusCode)
		}
	})

	t.Run("segments copies for unassigned segment is empty", func(t *testing.T) {
		resp, url := p.get(t, "/segments/228188/copies")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", url, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if got := strings.TrimSpace(string(body)); got != "null" && got != "[]" {
			t.Errorf("GET %s body = %q, want no copies", url, got)
		}
	})
}

// TestLocalHTTPSurface starts a real trough-sync-local against its own
// scratch store and segment root, provisions a writable segment, and
// round-trips a row through the /segment/{id}/exec and /query
// endpoints trough-cli drives.
func TestLocalHTTPSurface(t *testing.T) {
	requireBinaries(t)

	dir := t.TempDir()
	env := []string{
		"TROUGH_NODE_ID=127.0.0.1",
		"TROUGH_STORE_BOLT_PATH=" + filepath.Join(dir, "store.bolt"),
		"TROUGH_LOCAL_SEGMENT_ROOT=" + filepath.Join(dir, "segments"),
		"TROUGH_HTTP_ADDR=127.0.0.1:18081",
		"TROUGH_METRICS_ADDR=127.0.0.1:18091",
		"TROUGH_READ_PORT=18081",
		"TROUGH_WRITE_PORT=18083",
		"TROUGH_SYNC_CYCLE=200ms",
	}

	p := startBinary(t, localBin, "127.0.0.1:18081", env)

	t.Run("info reports configured node id", func(t *testing.T) {
		resp, url := p.get(t, "/info")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", url, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), `"node":"127.0.0.1"`) {
			t.Errorf("GET %s body = %q, want node 127.0.0.1", url, body)
		}
	})

	segID := "228188"
	t.Run("sync provisions the segment for writing", func(t *testing.T) {
		resp, err := p.client.Post(p.baseURL+"/sync/segment/"+segID, "application/octet-stream", nil)
		if err != nil {
			t.Fatalf("POST /sync/segment/%s: %v", segID, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST /sync/segment/%s = %d, want 200", segID, resp.StatusCode)
		}
	})

	t.Run("exec then query round-trips a row", func(t *testing.T) {
		stmt := "CREATE TABLE greetings (msg TEXT); INSERT INTO greetings VALUES ('hello')"
		resp, err := p.client.Post(p.baseURL+"/segment/"+segID+"/exec", "text/plain", bytes.NewReader([]byte(stmt)))
		if err != nil {
			t.Fatalf("POST /segment/%s/exec: %v", segID, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST /segment/%s/exec = %d, want 200", segID, resp.StatusCode)
		}

		resp, url := p.get(t, "/segment/"+segID+"/query?sql="+strings.ReplaceAll("SELECT msg FROM greetings", " ", "+"))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", url, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "hello") {
			t.Errorf("GET %s body = %q, want the inserted row", url, body)
		}
	})
}
