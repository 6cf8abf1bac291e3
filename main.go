package main

import "github.com/Re-Local/Backend/cmd"

func main() {
	cmd.Execute()
}
