// Command pinboard manages kanban boards from the terminal and serves them
// over HTTP.
package main

import "github.com/mesh-intelligence/pinboard/internal/cli"

func main() {
	cli.Execute()
}
