// Command rollcall runs the attendance confirmation engine.
package main

import "github.com/okian/rollcall/internal/cli"

func main() {
	cli.Execute()
}
