package main

import "github.com/jsphweid/biaxial/cmd"

func main() {
	cmd.Execute()
}
