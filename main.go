package main

import "github.com/ordergw/order-gateway/cmd"

func main() {
	cmd.Execute()
}
