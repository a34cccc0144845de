package main

import "martaudit/cmd"

func main() {
	cmd.Execute()
}
