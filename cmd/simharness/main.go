package main

import "github.com/simharness/simharness/internal/cli"

func main() {
	cli.Execute()
}
