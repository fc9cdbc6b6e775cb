package main

import (
	"os"
)

func main() {
	a := newApp()
	if err := execute(newRootCmd(a), a); err != nil {
		os.Exit(1)
	}
}
