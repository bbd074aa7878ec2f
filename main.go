package main

import "deskpilot/pkg/cli"

func main() {
	cli.Execute()
}
