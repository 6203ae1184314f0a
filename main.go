package main

import "thoreinstein.com/prc/cmd"

func main() {
	cmd.Execute()
}
