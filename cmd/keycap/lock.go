package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Instance Lock
// ///////////////////////////////////////////////

// errAlreadyRunning is returned by [acquireLock] when another process holds
// the lock.
var errAlreadyRunning = errors.New("already running")

// instanceLock is an advisory lock file holding "PID:TOKEN". The token
// proves ownership so [instanceLock.Release] never removes a file written
// by a later instance.
type instanceLock struct {
	path  string
	token string
	f     *os.File
}

// lockToken generates a random 16-character hex token.
func lockToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquireLock creates or opens the lock file at path and locks it. The
// returned lock must stay open for the lifetime of the process. A lock held
// by another process yields [errAlreadyRunning] with its PID when known.
func acquireLock(path string) (*instanceLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if pid := readLockPID(path); pid > 0 {
			return nil, fmt.Errorf("%w (pid %d)", errAlreadyRunning, pid)
		}
		return nil, fmt.Errorf("%w: %w", errAlreadyRunning, err)
	}

	l := &instanceLock{path: path, token: lockToken(), f: f}
	if err := f.Truncate(0); err != nil {
		l.Release()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d:%s", os.Getpid(), l.token); err != nil {
		l.Release()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return l, nil
}

// readLockPID returns the PID recorded in the lock file, or 0.
func readLockPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pidStr, _, _ := strings.Cut(string(data), ":")
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0
	}
	return pid
}

// Release unlocks and closes the file, then removes it if it still carries
// this lock's token.
func (l *instanceLock) Release() {
	if l.f != nil {
		_ = unlockFile(l.f)
		l.f.Close()
		l.f = nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	if _, token, ok := strings.Cut(string(data), ":"); ok && token == l.token {
		os.Remove(l.path)
	}
}
