package main

import "github.com/naka-gawa/codestats-box/cmd"

func main() {
	cmd.Execute()
}
