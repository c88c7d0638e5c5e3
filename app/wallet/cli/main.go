// This program provides a simple command line wallet for the node.
package main

import "github.com/remylch/ola-chain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
