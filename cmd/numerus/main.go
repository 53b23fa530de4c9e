package main

import (
	"github.com/mcoot/numerus/internal/cli"
)

func main() {
	cli.Execute()
}
