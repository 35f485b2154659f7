package main

import "github.com/oshokin/bell-scheduler/cmd/bell-scheduler/cmd"

func main() {
	cmd.Execute()
}
