package main

import "github.com/jkrings/larch/cmd"

func main() {
	cmd.Execute()
}
