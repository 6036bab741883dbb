package main

import (
	"github.com/medregula/casetrack/internal/interfaces/cli"
)

func main() {
	cli.Execute()
}
