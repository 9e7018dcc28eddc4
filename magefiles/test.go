//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration).
type Test mg.Namespace

// All runs all tests (unit and integration).
func (Test) All() error {
	if err := (Test{}).Unit(); err != nil {
		return err
	}
	return Test{}.Integration()
}

// Unit runs only unit tests, excluding the tests/ directory.
//
//	mage test:unit --run TestTable
func (Test) Unit() error {
	fs := flag.NewFlagSet("test:unit", flag.ContinueOnError)
	run := fs.String("run", "", "run only tests matching the pattern")
	parseTargetFlags(fs)

	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.Contains(pkg, "/tests/") && !strings.HasSuffix(pkg, "/tests") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	return goTest(*run, unitPkgs...)
}

// Integration runs the tests/ suite. When a container runtime is available
// and DOCSTORE_TEST_POSTGRES_URL is unset, a throwaway PostgreSQL container
// backs the PostgreSQL tests; otherwise they are skipped.
//
//	mage test:integration --run TestPostgres --keep
func (Test) Integration() error {
	fs := flag.NewFlagSet("test:integration", flag.ContinueOnError)
	run := fs.String("run", "", "run only tests matching the pattern")
	keep := fs.Bool("keep", false, "leave the PostgreSQL container running")
	parseTargetFlags(fs)

	if _, err := os.Stat("tests"); os.IsNotExist(err) {
		fmt.Println("No integration test directory found (tests/).")
		return nil
	}
	mg.Deps(Build)

	if os.Getenv(envTestPostgresURL) == "" {
		if rt := containerRuntime(); rt != "" {
			url, err := startPostgres(rt)
			if err != nil {
				return err
			}
			if !*keep {
				defer stopPostgres(rt)
			}
			os.Setenv(envTestPostgresURL, url)
		} else {
			fmt.Fprintln(os.Stderr, "No container runtime; PostgreSQL tests will be skipped.")
		}
	}
	return goTest(*run, "./tests/...")
}
