package main

import "github.com/oshokin/package2pypi/cmd/package2pypi/cmd"

func main() {
	cmd.Execute()
}
