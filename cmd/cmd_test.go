package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/chromenode/internal/locator"
	"github.com/smazurov/chromenode/internal/version"
)

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLocateWithExecutableOverride(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, CreateLocateCmd(), "--executable", exe, "--json")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	var got []locator.Candidate
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 1 || got[0].Path != exe {
		t.Errorf("candidates = %+v", got)
	}
}

func TestLocateTable(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "chrome")
	if err := os.WriteFile(exe, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, CreateLocateCmd(), "-e", exe)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !strings.HasPrefix(out, "WEIGHT") || !strings.Contains(out, exe) {
		t.Errorf("output = %q", out)
	}
}

func TestLocateMissingExecutable(t *testing.T) {
	_, err := run(t, CreateLocateCmd(), "-e", filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, locator.ErrNoInstallationFound) {
		t.Errorf("err = %v, want ErrNoInstallationFound", err)
	}
}

func TestTargetsRejectsUnknownMode(t *testing.T) {
	_, err := run(t, CreateTargetsCmd(), "--mode", "fullscreen")
	if err == nil {
		t.Fatal("targets accepted an unknown mode")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, CreateVersionCmd())
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version.String() {
		t.Errorf("version = %q, want %q", out, version.String())
	}

	out, err = run(t, CreateVersionCmd(), "--json")
	if err != nil {
		t.Fatal(err)
	}
	var info version.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if info.Version != version.Get().Version {
		t.Errorf("Version = %q", info.Version)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestTargetsSignalDuringLaunchKillsBrowser(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "workspaces")
	if err := os.Mkdir(base, 0o755); err != nil {
		t.Fatal(err)
	}
	// Never opens the debugging port, so the launch stays pending.
	exe := filepath.Join(dir, "chrome")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\nexec sleep 60\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	exited := make(chan int, 1)
	exit = func(code int) { exited <- code }
	t.Cleanup(func() { exit = os.Exit })

	args := []string{"-e", exe, "--workspace-base", base, "-p", strconv.Itoa(freePort(t)), "--timeout", "30s"}
	done := make(chan error, 1)
	go func() {
		_, err := run(t, CreateTargetsCmd(), args...)
		done <- err
	}()

	var pid int
	deadline := time.Now().Add(5 * time.Second)
	for pid == 0 && time.Now().Before(deadline) {
		matches, _ := filepath.Glob(filepath.Join(base, "chrome_*", "chrome.pid"))
		for _, m := range matches {
			if data, err := os.ReadFile(m); err == nil {
				pid, _ = strconv.Atoi(strings.TrimSpace(string(data)))
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if pid == 0 {
		t.Fatal("browser never started")
	}

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	select {
	case code := <-exited:
		if code != 0 {
			t.Errorf("exit code = %d, want 0", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not trigger teardown")
	}
	select {
	case err := <-done:
		if err == nil {
			t.Error("targets succeeded after the signal")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("targets still blocked after the signal")
	}

	if syscall.Kill(pid, 0) == nil {
		t.Errorf("browser %d survived the signal", pid)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace left behind: %v", entries)
	}
}
