//go:build !windows

package shell

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// shellCommand wraps a command line for the platform shell.
func shellCommand(command string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", command)
}

// ptySession owns the controlling side of a pseudo-terminal backed command.
type ptySession struct {
	file *os.File
	cmd  *exec.Cmd
}

// startPty starts cmd attached to a fresh pty. The child becomes a session
// leader, so group-level signals reach the whole command tree.
func startPty(cmd *exec.Cmd, cols, rows int) (*ptySession, error) {
	size := &pty.Winsize{Cols: 80, Rows: 24}
	if cols > 0 {
		size.Cols = uint16(cols)
	}
	if rows > 0 {
		size.Rows = uint16(rows)
	}

	file, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, err
	}
	return &ptySession{file: file, cmd: cmd}, nil
}

// Reader exposes the merged terminal output stream.
func (p *ptySession) Reader() io.Reader { return ptyReader{file: p.file} }

// Resize changes the terminal dimensions.
func (p *ptySession) Resize(cols, rows int) error {
	return pty.Setsize(p.file, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

// Kill implements proc.PtyHandle as the last-resort teardown path.
func (p *ptySession) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Close releases the controlling terminal.
func (p *ptySession) Close() {
	_ = p.file.Close()
}

// ptyReader masks the EIO a pty read returns once the child side closes,
// which is the normal end-of-stream condition for a terminal.
type ptyReader struct {
	file *os.File
}

func (r ptyReader) Read(p []byte) (int, error) {
	n, err := r.file.Read(p)
	return n, maskPtyEOF(err)
}

// maskPtyEOF maps the EIO to a plain end of stream. os.File wraps the errno
// in a PathError, so the match must unwrap.
func maskPtyEOF(err error) error {
	if err != nil && errors.Is(err, syscall.EIO) {
		return io.EOF
	}
	return err
}
