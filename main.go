package main

import "github.com/KaramelBytes/adreport-cli/cmd"

func main() {
	cmd.Execute()
}
