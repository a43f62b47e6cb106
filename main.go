package main

import "github.com/iksnae/persona-sft/cmd"

func main() {
	cmd.Execute()
}
