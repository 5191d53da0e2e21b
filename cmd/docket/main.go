// Command docket watches an intake directory, classifies scanned documents,
// stamps them with a tracking code and files them by route.
package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
