package main

import "github.com/tanq16/roxdl/cmd"

func main() {
	cmd.Execute()
}
