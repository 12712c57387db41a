package main

import (
	"github.com/witnessnet/witnessnet/cmd/witness-node/cmd"
)

func main() {
	cmd.Execute()
}
