package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetUsesLdflags(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate }()

	Version, GitCommit, BuildDate = "v1.2.3", "abc123", "2026-10-18"
	info := Get()

	if info.Version != "v1.2.3" || info.GitCommit != "abc123" || info.BuildDate != "2026-10-18" {
		t.Errorf("Get() = %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, runtime.Version())
	}
	if !strings.Contains(String(), "chromenode v1.2.3") {
		t.Errorf("String() = %q", String())
	}
}
