package main

import "github.com/alechenninger/readgate/internal/cli"

func main() {
	cli.Execute()
}
