package main

import "github.com/avivl/locker/cmd/locker/commands"

func main() {
	commands.Execute()
}
