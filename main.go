package main

import "dupescan/cli"

func main() {
	cli.Execute()
}
