package main

import "github.com/frahmantamala/donation-service/cmd"

func main() {
	cmd.Execute()
}
