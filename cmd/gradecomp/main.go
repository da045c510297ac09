// Command gradecomp renders and live-previews scene documents through the
// compose node compositor.
//
// Usage:
//
//	gradecomp render scene.yaml --out frame.png
//	gradecomp watch scene.yaml --out frame.png --metrics-addr :9090
//	gradecomp validate scene.toml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
