package main

import "connectiu-backend/cmd"

func main() {
	cmd.Run()
}
