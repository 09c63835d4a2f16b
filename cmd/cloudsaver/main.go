package main

import "github.com/ogulcanaydogan/cloudsaver/internal/cli"

func main() {
	cli.Execute()
}
