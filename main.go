package main

import (
	"github.com/shinyvision/poxref/internal/cli"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	cli.Execute()
}
