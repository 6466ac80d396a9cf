package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"tablecast/internal/security"
)

func main() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: go run ./scripts/sign_request <secret> <method> <path> <body>")
		fmt.Println("Example: go run ./scripts/sign_request mysecret POST /export '{\"query\":\"...\"}'")
		return
	}

	secret := os.Args[1]
	method := os.Args[2]
	path := os.Args[3]
	body := os.Args[4]
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	signature := security.SignRequest(secret, method, path, body, timestamp)

	fmt.Printf("X-Timestamp: %s\n", timestamp)
	fmt.Printf("X-Signature: %s\n", signature)
}
