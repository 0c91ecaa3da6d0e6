// Command mtloop runs time-slot loops described in YAML files.
package main

import "github.com/sarchlab/mtloop/cmd/mtloop/cmd"

func main() {
	cmd.Execute()
}
