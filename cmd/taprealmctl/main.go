package main

import "taprealm/internal/cli"

func main() {
	cli.Execute()
}
