package main

import "github.com/agentic-research/lina/cmd"

func main() {
	cmd.Execute()
}
