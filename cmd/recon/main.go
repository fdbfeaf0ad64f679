package main

import "github.com/yorozuya-cybersecurity/yoro-recon/pkg/cli"

func main() {
	cli.Execute()
}
