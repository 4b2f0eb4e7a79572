package main

import "github.com/bryanchriswhite/frostglass/cmd/frostglass/commands"

func main() {
	commands.Execute()
}
