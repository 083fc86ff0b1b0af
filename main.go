package main

import "github.com/findy-network/campus-agent/cmd"

func main() {
	cmd.Execute()
}
