package main

import "github.com/mbaxter/joybeat/cmd"

func main() {
	cmd.Execute()
}
