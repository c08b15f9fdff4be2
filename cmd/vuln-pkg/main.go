package main

import (
	"github.com/vulnpkg/vulnpkg/internal/adapters/cli"
)

func main() {
	cli.Execute()
}
