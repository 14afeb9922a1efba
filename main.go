// The main package for the pressmill executable.
package main

import "github.com/pressmill/pressmill/cmd"

func main() {
	cmd.Execute()
}
