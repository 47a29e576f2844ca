// Command spk is the SPK package manager's command-line front end.
package main

import "os"

func main() {
	os.Exit(Execute())
}
