package main

import (
	"github.com/astroshed/starcapture/cmd/starcapture/commands"
)

func main() {
	commands.Execute()
}
