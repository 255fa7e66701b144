// Command encdoc encrypts, decrypts and queries blind-indexed documents.
package main

import (
	"fmt"
	"os"

	"github.com/ai8future/encdoc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "encdoc:", err)
		os.Exit(1)
	}
}
