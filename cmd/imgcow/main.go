package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/Fepozopo/imgcow/pkg/cli"
)

func main() {
	if err := fang.Execute(
		context.Background(),
		cli.NewRootCmd(),
		fang.WithVersion(cli.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
