package main

import (
	"fmt"
	"os"

	"github.com/adboard-io/adboard-engine/services/connector"
)

func main() {
	if err := connector.Command().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
