package main

import (
	"github.com/AzielCF/az-overlay/cmd"
)

func main() {
	cmd.Execute()
}
