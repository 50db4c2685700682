// Command line client for the encrypted chat API.
package main

import (
	"fmt"
	"os"

	"github.com/rammm2005/api-3des/clients/go/chat"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHAT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}

	client := chat.NewClient(baseURL, os.Args[1])
	cmd := os.Args[2]

	switch cmd {
	case "register":
		_, err := client.Register()
		exitOnError(err)
		fmt.Println("registered")

	case "request-otp":
		_, err := client.RequestOTP()
		exitOnError(err)
		fmt.Println("OTP sent, check your inbox")

	case "verify":
		requireArg(3, "verify <code>")
		_, err := client.VerifyOTP(os.Args[3])
		exitOnError(err)
		fmt.Println("verified")

	case "send":
		requireArg(3, "send <message>")
		resp, err := client.Send(os.Args[3])
		exitOnError(err)
		fmt.Printf("sent (encrypted in %.3fms)\n", resp.EncryptDurationMs)

	case "read":
		entries, err := client.History()
		exitOnError(err)
		for _, entry := range entries {
			resp, err := client.Decrypt(entry.Message, "")
			if err != nil {
				fmt.Printf("  %s  %s  <undecryptable>\n", entry.Timestamp.Format("15:04:05"), entry.Sender)
				continue
			}
			fmt.Printf("  %s  %s  %s\n", entry.Timestamp.Format("15:04:05"), entry.Sender, resp.Decrypted)
		}

	default:
		usage()
		os.Exit(1)
	}
}

func requireArg(n int, form string) {
	if len(os.Args) <= n {
		fmt.Fprintf(os.Stderr, "usage: chat <email> %s\n", form)
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: chat <email> <command> [args]

commands:
  register           create the identity
  request-otp        mail a one-time passcode
  verify <code>      verify a received passcode
  send <message>     send a chat message
  read               print the decrypted chat log`)
}
