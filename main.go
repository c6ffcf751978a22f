package main

import "github.com/KaramelBytes/carloom-cli/cmd"

func main() {
	cmd.Execute()
}
