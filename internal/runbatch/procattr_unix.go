// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runbatch

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// DefaultShell returns bash -c when bash is on PATH, otherwise /bin/sh -c.
func DefaultShell() []string {
	if p, err := exec.LookPath("bash"); err == nil {
		return []string{p, "-c"}
	}

	return []string{"/bin/sh", "-c"}
}

// sysProcAttr puts the child in its own process group so the whole tree can be killed.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killGroup sends SIGKILL to the child's process group.
func killGroup(ps *os.Process) error {
	err := syscall.Kill(-ps.Pid, syscall.SIGKILL)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ESRCH):
		return os.ErrProcessDone
	default:
		return ps.Kill()
	}
}
