package main

import "github.com/frahmantamala/instrumentalist-payouts/cmd"

func main() {
	cmd.Execute()
}
