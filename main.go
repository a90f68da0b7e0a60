package main

import "github.com/Abhinavnist/payment-system-backend/cmd"

func main() {
	cmd.Execute()
}
