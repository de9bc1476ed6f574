// Command archive is the terminal game collection.
package main

import "github.com/mcoot/archive/internal/cli"

func main() {
	cli.Execute()
}
