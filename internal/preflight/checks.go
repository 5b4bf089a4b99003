package preflight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	_ "modernc.org/sqlite"
)

// minFreeBytes is the threshold below which the free-space check warns.
// Staged copies and zip assembly both live on the staging volume.
const minFreeBytes = 512 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace warns when the volume holding path runs low. It never blocks
// startup; low disk is survivable until staging actually fails.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("statfs: %v", err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))
	if free < minFreeBytes {
		return Result{Name: name, Optional: true, Detail: detail + " (low)"}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: detail}
}

// CheckDatabase verifies the mapping database can be opened and queried.
func CheckDatabase(name, path string) Result {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open: %v", err)}
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("ping: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckRemoteWorkbook verifies the configured workbook URL answers a HEAD
// request. Remote refresh is optional, so failures never block startup.
func CheckRemoteWorkbook(ctx context.Context, url string) Result {
	const name = "Remote workbook"

	url = strings.TrimSpace(url)
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("bad url (%v)", err)}
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("HEAD returned %d", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "reachable"}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (host unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (host unreachable)"
	}
	return err.Error()
}
