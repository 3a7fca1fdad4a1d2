package main

import "github.com/koios/frame-renderer/cmd/framer/cmd"

func main() {
	cmd.Execute()
}
