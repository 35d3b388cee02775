package main

import "github.com/cogsched/cogsched/internal/cli"

func main() {
	cli.Execute()
}
