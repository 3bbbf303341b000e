package main

import "github.com/kailas-cloud/laudos/internal/cli"

func main() {
	cli.Execute()
}
