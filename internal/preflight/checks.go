package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"romverify/internal/config"
	"romverify/internal/retroachievements"
	"romverify/internal/system"
)

const apiCheckName = "RetroAchievements API"

// CheckRetroAchievements verifies the API is reachable and accepts the key by
// requesting the console table. It uses a single attempt with a short timeout.
func CheckRetroAchievements(ctx context.Context, cfg *config.Config) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := retroachievements.New(
		cfg.RetroAchievements.APIKey,
		cfg.RetroAchievements.BaseURL,
		retroachievements.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}),
		retroachievements.WithMinInterval(0),
	)
	if err != nil {
		return Result{Name: apiCheckName, Detail: err.Error()}
	}
	consoles, err := client.GetConsoleIDs(checkCtx)
	if err != nil {
		return Result{Name: apiCheckName, Detail: summarizeAPIError(err)}
	}
	return Result{Name: apiCheckName, Passed: true, Detail: fmt.Sprintf("reachable (%d consoles)", len(consoles))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadable verifies that the directory exists and can be listed.
func CheckReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
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
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(st.Bavail) * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free", formatBytes(free))
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, formatBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCatalogs reports how many of the systems have a usable cached game
// list.
func CheckCatalogs(ctx context.Context, cache *retroachievements.Cache, systems []system.System) Result {
	const name = "Catalogs"

	var missing []string
	for _, st := range cache.Statuses(ctx, systems) {
		if !st.Cached || st.Err != nil {
			missing = append(missing, st.System.String())
		}
	}
	cached := len(systems) - len(missing)
	if len(missing) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d/%d cached", cached, len(systems))}
	}
	return Result{
		Name:   name,
		Detail: fmt.Sprintf("%d/%d cached (missing: %s)", cached, len(systems), strings.Join(missing, ", ")),
	}
}

func summarizeAPIError(err error) string {
	if errors.Is(err, retroachievements.ErrUnauthorized) {
		return "auth failed (invalid api key)"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (API unreachable)"
	}
	return err.Error()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
