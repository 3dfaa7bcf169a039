package main

import "github.com/vanpelt/sitecraft/internal/cmd"

func main() {
	cmd.Execute()
}
