package main

import "glaspolitics/cmd/cmd"

func main() {
	cmd.Execute()
}
