package main

import "matrixTasks/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
