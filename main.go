package main

import "github.com/regpay/ms-go-payment-relay/cmd"

func main() {
	cmd.Execute()
}
