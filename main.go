package main

import "github.com/kozaktomas/snaprace/cmd"

func main() {
	cmd.Execute()
}
