package main

import "github.com/bz888/blab-feedback/cmd"

func main() {
	cmd.Execute()
}
