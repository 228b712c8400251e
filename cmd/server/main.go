package main

import "github.com/sponsorhub/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
