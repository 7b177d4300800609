//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperengineering/pindex/pkg/client"
)

// pindexServer manages a running pindex server process.
type pindexServer struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	apiKey  string
	logFile *os.File
}

// startPindex launches the pindex binary and waits for it to become healthy.
// The server is configured entirely via environment variables.
func startPindex(t *testing.T) *pindexServer {
	t.Helper()
	requirePindex(t)
	return launchPindex(t, t.TempDir(), "e2e-test-api-key", "pindex.log")
}

func launchPindex(t *testing.T, dataDir, apiKey, logName string) *pindexServer {
	t.Helper()
	port := freePort(t)

	cmd := exec.Command(pindexBin, "serve")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("PINDEX_PORT=%d", port),
		"PINDEX_DB_PATH="+filepath.Join(dataDir, "pindex.db"),
		"PINDEX_API_KEY="+apiKey,
		"PINDEX_EXPORT_DIR="+filepath.Join(dataDir, "exports"),
		"PINDEX_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		"PINDEX_ENV_FILE="+filepath.Join(dataDir, "nonexistent.env"),
		"PINDEX_RECONCILE_INTERVAL=0s",
	)

	lf, err := os.Create(filepath.Join(dataDir, logName))
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start pindex: %v", err)
	}

	s := &pindexServer{
		cmd:     cmd,
		dataDir: dataDir,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		apiKey:  apiKey,
		logFile: lf,
	}
	t.Cleanup(s.stop)

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("pindex not healthy: %v", err)
	}
	return s
}

// stop interrupts the process and waits for the graceful shutdown.
func (s *pindexServer) stop() {
	if s.cmd != nil && s.cmd.Process != nil && s.cmd.ProcessState == nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}

// restartOnSameData stops the server and starts a new one on the same data
// directory and a new port.
func (s *pindexServer) restartOnSameData(t *testing.T) *pindexServer {
	t.Helper()
	s.stop()
	return launchPindex(t, s.dataDir, s.apiKey, "pindex-restart.log")
}

func (s *pindexServer) baseURL() string {
	return "http://" + s.address
}

func (s *pindexServer) dbPath() string {
	return filepath.Join(s.dataDir, "pindex.db")
}

func (s *pindexServer) client(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: s.baseURL(), APIKey: s.apiKey, MaxRetries: 2})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func (s *pindexServer) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/api/v1/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("pindex not healthy after %s", timeout)
}

// runCLI runs a pindex subcommand against dbPath and returns its stdout.
// Stderr is folded into the error.
func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	requirePindex(t)
	cmd := exec.Command(pindexBin, append([]string{"--db", dbPath}, args...)...)
	cmd.Env = append(os.Environ(),
		"PINDEX_CONFIG_PATH="+filepath.Join(filepath.Dir(dbPath), "nonexistent.yaml"),
		"PINDEX_ENV_FILE="+filepath.Join(filepath.Dir(dbPath), "nonexistent.env"),
		"PINDEX_EXPORT_DIR="+filepath.Join(filepath.Dir(dbPath), "exports"),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// freePort returns a free TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
