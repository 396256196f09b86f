// Command bulletin-sync imports bulletin signups into the contact directory
// and dispatches the weather bulletin through the campaign platform.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
