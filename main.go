package main

import "github.com/djyunz/SBSample/cmd"

func main() {
	cmd.Execute()
}
