package main

import "goaltracker/internal/cli"

func main() {
	cli.Execute()
}
