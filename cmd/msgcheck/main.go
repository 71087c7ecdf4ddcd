// Command msgcheck validates HTTP message fixtures.
package main

import "github.com/shapestone/shape-message/internal/cli"

func main() {
	cli.Execute()
}
