package main

import (
	"stellarpulse/internal/cli"
)

func main() {
	cli.Execute()
}
