package main

import "github.com/frahmantamala/procurement-management/cmd"

func main() {
	cmd.Execute()
}
