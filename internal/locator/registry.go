package locator

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultLSRegisterPath is the LaunchServices registry tool on macOS.
const DefaultLSRegisterPath = "/System/Library/Frameworks/CoreServices.framework" +
	"/Versions/A/Frameworks/LaunchServices.framework" +
	"/Versions/A/Support/lsregister"

// Registry lists application bundle directories that may contain a browser.
type Registry interface {
	Bundles(ctx context.Context) ([]string, error)
}

// StaticRegistry is a fixed bundle list.
type StaticRegistry []string

// Bundles returns the list as is.
func (s StaticRegistry) Bundles(context.Context) ([]string, error) {
	return []string(s), nil
}

// LSRegister reads bundles from `lsregister -dump`.
type LSRegister struct {
	// Path overrides DefaultLSRegisterPath.
	Path string
}

var (
	bundleLine = regexp.MustCompile(`(?i)google chrome( canary)?\.app$`)
	// Newer dumps append the bundle's registry id, e.g. "(0x1a2b)".
	registryID = regexp.MustCompile(`\s+\(0x[0-9a-fA-F]+\)$`)
)

// Bundles runs the registry dump and extracts Chrome bundle paths.
func (r *LSRegister) Bundles(ctx context.Context) ([]string, error) {
	path := r.Path
	if path == "" {
		path = DefaultLSRegisterPath
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-dump")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s -dump: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return parseDump(bytes.NewReader(out))
}

// parseDump keeps lines naming a Chrome bundle and drops their leading field
// ("path:" or similar).
func parseDump(r io.Reader) ([]string, error) {
	var bundles []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := registryID.ReplaceAllString(strings.TrimSpace(scanner.Text()), "")
		if !bundleLine.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		bundle := strings.Join(fields[1:], " ")
		if seen[bundle] {
			continue
		}
		seen[bundle] = true
		bundles = append(bundles, bundle)
	}
	return bundles, scanner.Err()
}
