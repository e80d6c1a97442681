package main

import "experts-geo/cmd"

func main() {
	cmd.Execute()
}
