package main

import "github.com/LENAX/dagsched/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
