// Command ping is the container healthcheck: it exits non-zero unless the
// server's /healthz answers 200 with status "ok".
//
//	HEALTHCHECK CMD ["/ping"]
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort    = 8080
	healthEndpoint = "/healthz"
	requestTimeout = 2 * time.Second

	codeRequestFailed     = 2
	codeBadHTTPStatus     = 3
	codeDecodeError       = 4
	codeReportedUnhealthy = 5
)

// healthResp mirrors the /healthz body.
type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	port := detectPort()
	url := fmt.Sprintf("http://localhost:%d%s", port, healthEndpoint)

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Get(url)
	if err != nil {
		fail(codeRequestFailed, "request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var h healthResp
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		fail(codeDecodeError, "decode error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		fail(codeBadHTTPStatus, "unexpected HTTP status %d: %s", resp.StatusCode, h.Error)
	}
	if h.Status != "ok" {
		fail(codeReportedUnhealthy, "service reported unhealthy: %q", h.Status)
	}

	log.Printf("postit healthy on port %d", port)
}

// detectPort parses APP_PORT and falls back to defaultPort.
func detectPort() int {
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			return p
		}
	}
	return defaultPort
}

func fail(code int, format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(code)
}
