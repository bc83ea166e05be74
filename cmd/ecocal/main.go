package main

import "ecocal/internal/cli"

func main() {
	cli.Execute()
}
