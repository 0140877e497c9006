package main

import "github.com/brensch/qcewpanel/cmd"

func main() {
	cmd.Execute()
}
