// Command iopmpsim checks a simulated IOPMP against the reference model.
package main

import "github.com/sarchlab/iopmpsim/cmd/iopmpsim/cmd"

func main() {
	cmd.Execute()
}
