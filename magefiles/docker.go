//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// PostgreSQL test container constants.
const (
	postgresImage     = "docker.io/library/postgres:16-alpine"
	postgresContainer = "docstore-test-postgres"
	postgresPort      = "55432"
	postgresPassword  = "docstore"
	postgresDB        = "docstore_test"

	envTestPostgresURL = "DOCSTORE_TEST_POSTGRES_URL"
)

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// postgresURL is the descriptor of the test container's database.
func postgresURL() string {
	return fmt.Sprintf("postgres://postgres:%s@127.0.0.1:%s/%s?sslmode=disable", postgresPassword, postgresPort, postgresDB)
}

// startPostgres runs a fresh PostgreSQL container and waits until it accepts
// connections. It returns the connection descriptor.
func startPostgres(rt string) (string, error) {
	stopPostgres(rt)

	fmt.Fprintln(os.Stderr, "Starting PostgreSQL container...")
	cmd := exec.Command(rt, "run", "-d", "--rm",
		"--name", postgresContainer,
		"-e", "POSTGRES_PASSWORD="+postgresPassword,
		"-e", "POSTGRES_DB="+postgresDB,
		"-p", "127.0.0.1:"+postgresPort+":5432",
		postgresImage)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("starting postgres container: %w", err)
	}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		ready := exec.Command(rt, "exec", postgresContainer,
			"pg_isready", "-U", "postgres", "-d", postgresDB)
		if ready.Run() == nil {
			return postgresURL(), nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	stopPostgres(rt)
	return "", fmt.Errorf("postgres container not ready after 60s")
}

// stopPostgres removes the test container. Errors are ignored because the
// container may not exist.
func stopPostgres(rt string) {
	_ = exec.Command(rt, "rm", "-f", postgresContainer).Run()
}
