// Package main provides the FluentNotes CLI client.
package main

import "github.com/raphaelgruber/fluentnotes-go/internal/cli"

func main() {
	cli.Execute()
}
