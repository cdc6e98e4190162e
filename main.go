package main

import "github.com/naka-gawa/github-forker/cmd"

func main() {
	cmd.Execute()
}
