// Package main is the entry point for the deadwood CLI.
package main

import "deadwood.dev/pkg/deadwood/cmd"

func main() {
	cmd.Execute()
}
