// Command skmf manages labeled resources and user accounts stored in a
// SPARQL triple store.
//
//	skmf serve
//	skmf resources skmf:Resource
//	skmf user add admin --name Administrator
package main

import (
	"os"

	"skmf.evalgo.org/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
