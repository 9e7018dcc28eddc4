//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"os/exec"
	"strings"

	"github.com/magefile/mage/sh"
)

// Binary names.
const (
	binGit = "git"
)

// versionPkg is the variable overridden by -ldflags at build time.
const versionPkg = "github.com/mesh-intelligence/docstore/pkg/docstore.Version"

// gitDescribe returns the nearest tag plus commit suffix, or "" outside a
// git checkout.
func gitDescribe() string {
	out, err := exec.Command(binGit, "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "v")
}

// ldflags returns the linker flags that stamp the version.
func ldflags() string {
	v := gitDescribe()
	if v == "" {
		return ""
	}
	return "-X " + versionPkg + "=" + v
}

// goTest runs go test with -v and an optional -run pattern.
func goTest(run string, pkgs ...string) error {
	args := []string{"test", "-v"}
	if run != "" {
		args = append(args, "-run", run)
	}
	return sh.RunV(binGo, append(args, pkgs...)...)
}
