package main

import (
	"os"

	"github.com/ssobridge/ssobridge/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
