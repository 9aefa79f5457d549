package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// CheckDirectoryAccess verifies that the directory exists and can be listed.
// When writable is set, write permission is required as well.
func CheckDirectoryAccess(name, path string, writable bool) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path, writable); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	if writable {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckParser verifies that the parse service answers HTTP. The endpoint only
// accepts POST, so any HTTP response counts as reachable.
func CheckParser(ctx context.Context, endpoint string) Result {
	const name = "Parse service"
	return checkHTTP(ctx, name, endpoint)
}

// CheckNtfy verifies that the ntfy server for the configured topic answers HTTP.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"
	return checkHTTP(ctx, name, topic)
}

func checkHTTP(ctx context.Context, name, endpoint string) Result {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", endpoint)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("%s (server error %d)", endpoint, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", endpoint)}
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Sprintf("unreachable (%v)", opErr.Err)
	}
	return err.Error()
}
