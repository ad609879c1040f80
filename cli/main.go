package main

import "github.com/mtsgi/tasket/cli/cmd"

func main() {
	cmd.Execute()
}
