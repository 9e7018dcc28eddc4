// Package main provides the docstore CLI.
package main

import "github.com/mesh-intelligence/docstore/internal/cli"

func main() {
	cli.Execute()
}
