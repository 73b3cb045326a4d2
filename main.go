package main

import "github.com/denshell/den/cmd"

func main() {
	cmd.Execute()
}
