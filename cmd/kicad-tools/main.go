package main

import "github.com/rjwalters/kicad-tools-sub002/pkg/cmd"

func main() {
	cmd.Execute()
}
