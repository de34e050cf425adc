// Package process provides generic subprocess lifecycle management.
//
// This package is designed for managing long-running child processes like
// protocol daemons (the Matter controller bridge) that HomeHub depends on.
//
// Features:
//   - Start/stop subprocess with graceful shutdown
//   - Automatic restart on failure with configurable backoff
//   - Health monitoring and status reporting
//   - Log capture from subprocess stdout/stderr
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	mgr := process.NewManager(process.Config{
//	    Name:              "matter-bridge",
//	    Binary:            "/usr/local/bin/homehub-matter-bridge",
//	    Args:              []string{"--mqtt", "tcp://localhost:1883"},
//	    RestartOnFailure:  true,
//	    RestartDelay:      5 * time.Second,
//	    MaxRestartAttempts: 10,
//	})
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop()
package process
