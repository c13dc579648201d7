package main

import "github.com/philjestin/routegen/cmd"

func main() {
	cmd.Execute()
}
