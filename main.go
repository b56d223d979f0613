package main

import "github.com/billbatista/acasinha-ledger/cmd"

func main() {
	cmd.Execute()
}
