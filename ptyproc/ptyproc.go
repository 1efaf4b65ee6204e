// Package ptyproc spawns and manages the login shell behind one terminal:
// github.com/creack/pty starts the child attached to a kernel pty, and
// Resize keeps the kernel's winsize in step with Terminal.Resize.
package ptyproc

import (
	"io"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"github.com/raventerm/termengine/config"
)

// Process manages a pseudo-terminal connection to a shell.
type Process struct {
	cmd      *exec.Cmd
	pty      *os.File
	mu       sync.Mutex
	exited   bool
	exitedMu sync.Mutex
}

// Spawn starts a new PTY session running the configured login shell at the
// given initial size.
func Spawn(cfg config.ShellConfig, cols, rows uint16) (*Process, error) {
	shell := findShell(cfg)

	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	shellBase := shell
	if idx := strings.LastIndex(shell, "/"); idx >= 0 {
		shellBase = shell[idx+1:]
	}

	var cmd *exec.Cmd
	if cfg.SourceRC {
		switch shellBase {
		case "bash":
			cmd = exec.Command(shell, "-i")
		case "zsh":
			cmd = exec.Command(shell, "-i")
		case "fish":
			cmd = exec.Command(shell, "-i")
		default:
			cmd = exec.Command(shell, "-i")
		}
	} else {
		switch shellBase {
		case "bash":
			cmd = exec.Command(shell, "--noprofile", "--norc", "-i")
		case "zsh":
			cmd = exec.Command(shell, "--no-rcs", "-i")
		case "fish":
			cmd = exec.Command(shell, "--no-config", "-i")
		default:
			cmd = exec.Command(shell, "-i")
		}
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	xdgRuntimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if xdgRuntimeDir == "" {
		xdgRuntimeDir = "/run/user/" + currentUser.Uid
	}

	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin:" + os.Getenv("PATH"),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"HOME=" + currentUser.HomeDir,
		"USER=" + currentUser.Username,
		"SHELL=" + shell,
		"LANG=en_US.UTF-8",
		"LC_ALL=en_US.UTF-8",
		"XDG_RUNTIME_DIR=" + xdgRuntimeDir,
	}
	if display := os.Getenv("DISPLAY"); display != "" {
		env = append(env, "DISPLAY="+display)
	}
	if waylandDisplay := os.Getenv("WAYLAND_DISPLAY"); waylandDisplay != "" {
		env = append(env, "WAYLAND_DISPLAY="+waylandDisplay)
		env = append(env, "XDG_SESSION_TYPE=wayland")
	}
	for k, v := range cfg.AdditionalEnv {
		env = append(env, k+"="+v)
	}

	cmd.Env = env
	cmd.Dir = currentUser.HomeDir

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, err
	}

	p := &Process{cmd: cmd, pty: ptmx}

	go func() {
		cmd.Wait()
		p.exitedMu.Lock()
		p.exited = true
		p.exitedMu.Unlock()
	}()

	return p, nil
}

func findShell(cfg config.ShellConfig) string {
	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err == nil {
			return cfg.Path
		}
	}

	if currentUser, err := user.Current(); err == nil {
		if shell := getUserShell(currentUser.Username); shell != "" {
			if _, err := os.Stat(shell); err == nil {
				return shell
			}
		}
	}

	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/zsh", "/usr/bin/zsh", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

func getUserShell(username string) string {
	data, err := os.ReadFile("/etc/passwd")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) >= 7 && fields[0] == username {
			return fields[6]
		}
	}
	return ""
}

// Read reads from the PTY.
func (p *Process) Read(buf []byte) (int, error) {
	return p.pty.Read(buf)
}

// Write writes to the PTY.
func (p *Process) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pty.Write(data)
}

// Resize resizes the kernel pty's winsize.
func (p *Process) Resize(cols, rows uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pty.Setsize(p.pty, &pty.Winsize{Cols: cols, Rows: rows})
}

// HasExited reports whether the shell process has exited.
func (p *Process) HasExited() bool {
	p.exitedMu.Lock()
	defer p.exitedMu.Unlock()
	return p.exited
}

// Close kills the child process and closes the PTY file descriptor.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	return p.pty.Close()
}

// Reader returns an io.Reader for the PTY.
func (p *Process) Reader() io.Reader { return p.pty }

// Writer returns an io.Writer for the PTY.
func (p *Process) Writer() io.Writer { return p.pty }
