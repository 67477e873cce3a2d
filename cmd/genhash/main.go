package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Prints the bcrypt hash to paste into ADMIN_PASSWORD_HASH.
func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "uso: genhash <contraseña>")
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), 12)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(h))
}
