package main

import (
	"github.com/opencustomize/opencustomize/cmd"
	_ "github.com/opencustomize/opencustomize/cmd/prepare"
)

func main() {
	cmd.Execute()
}
