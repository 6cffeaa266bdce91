// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package runbatch

import (
	"os"
	"os/exec"
	"syscall"
)

// DefaultShell returns cmd.exe /C.
func DefaultShell() []string {
	if p, err := exec.LookPath("cmd.exe"); err == nil {
		return []string{p, "/C"}
	}

	return []string{`C:\Windows\System32\cmd.exe`, "/C"}
}

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func killGroup(ps *os.Process) error {
	return ps.Kill()
}
