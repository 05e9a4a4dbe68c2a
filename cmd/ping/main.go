// Command ping probes /healthz and exits non-zero when the server or its
// note store is down. Intended for Docker HEALTHCHECK:
//
//	HEALTHCHECK CMD ["/ping"]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort          = 8080
	healthEndpoint       = "/healthz"
	expectedHealthStatus = "ok"

	// exit codes
	codeRequestFailed     = 2
	codeBadHTTPStatus     = 3
	codeDecodeError       = 4
	codeReportedUnhealthy = 5
	codeStoreDown         = 6
)

// healthResp mirrors the /healthz body, e.g. {"status":"down","error":"store unreachable"}.
type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func main() {
	timeout := flag.Duration("timeout", time.Second, "Request timeout")
	host := flag.String("host", "localhost", "Host to probe")
	flag.Parse()

	port := detectPort()
	url := fmt.Sprintf("http://%s:%d%s", *host, port, healthEndpoint)
	os.Exit(probe(&http.Client{Timeout: *timeout}, url))
}

// probe returns the process exit code for one health request against url.
func probe(client *http.Client, url string) int {
	resp, err := client.Get(url)
	if err != nil {
		log.Printf("request failed: %v", err)
		return codeRequestFailed
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	var h healthResp
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("decode error: %v", err)
		return codeDecodeError
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		log.Printf("note store down: %s", h.Error)
		return codeStoreDown
	case resp.StatusCode != http.StatusOK:
		log.Printf("unexpected HTTP status %d", resp.StatusCode)
		return codeBadHTTPStatus
	case h.Status != "" && h.Status != expectedHealthStatus:
		log.Printf("service reported unhealthy: %q", h.Status)
		return codeReportedUnhealthy
	}

	log.Printf("service healthy at %s", url)
	return 0
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
