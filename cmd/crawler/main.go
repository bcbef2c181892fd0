// Command crawler collects Olive Young product options into SQL batch files.
package main

import (
	"os"

	"github.com/maltedev/product-options-crawler/cmd/crawler/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
