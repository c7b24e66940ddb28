package main

import "github.com/odyssey-erp/shopdesk/cmd/shopctl/cli"

func main() {
	cli.Execute()
}
