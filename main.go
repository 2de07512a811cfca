package main

import "github.com/tantalor93/dnsperf/cmd"

func main() {
	cmd.Execute()
}
