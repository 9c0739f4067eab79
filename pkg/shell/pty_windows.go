//go:build windows

package shell

import (
	"errors"
	"io"
	"os/exec"
)

func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/C", command)
}

// ptySession is never constructed on Windows; executions fall back to pipes.
type ptySession struct{}

func startPty(_ *exec.Cmd, _, _ int) (*ptySession, error) {
	return nil, errors.New("pty mode is not supported on windows")
}

func (p *ptySession) Reader() io.Reader         { return nil }
func (p *ptySession) Resize(_, _ int) error     { return nil }
func (p *ptySession) Kill() error               { return nil }
func (p *ptySession) Close()                    {}
