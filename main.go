package main

import "github.com/fakeyudi/gaslog/cmd"

func main() {
	cmd.Execute()
}
