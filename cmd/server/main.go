package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	dotenvErr := godotenv.Load()

	a := &app{dotenvLoaded: dotenvErr == nil}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
