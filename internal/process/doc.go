// Package process wraps os/exec for a single long-running subprocess.
//
// A Process runs in its own process group, so it is detached from the
// supervisor's terminal signals and can be torn down together with any helper
// processes it forks. Exit is observed once by a background Wait and exposed
// through Done. Stop sends SIGINT, waits for a grace period and then sends
// SIGKILL to the group.
//
//	p, err := process.Start(process.Spec{
//	    Path:   "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
//	    Args:   []string{"--remote-debugging-port=9222", "about:blank"},
//	    Stdout: outFile,
//	    Stderr: errFile,
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer p.Stop(context.Background())
package process
