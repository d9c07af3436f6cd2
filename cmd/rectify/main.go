package main

import "github.com/squaredoc/rectify/cmd/rectify/cmd"

func main() {
	cmd.Execute()
}
