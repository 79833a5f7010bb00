package main

import "github.com/unstableunicorn/avrbootjack/cmd/intelhex2array/cmd"

func main() {
	cmd.Execute()
}
