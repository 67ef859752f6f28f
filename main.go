package main

import "github.com/mselser95/dutch-filler/cmd"

func main() {
	cmd.Execute()
}
