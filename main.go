// main package for the bytemut command-line tool
// Package main is the entry point for the bytemut CLI.
package main

import "gooze.dev/pkg/bytemut/cmd"

func main() {
	cmd.Execute()
}
