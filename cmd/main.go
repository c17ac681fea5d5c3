package main

import "github.com/hatchpoint/variance/internal/cli"

func main() {
	cli.Execute()
}
