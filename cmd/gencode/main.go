package main

import (
	"flag"
	"fmt"
	"log"

	"tootsched/pkg/utils"
)

// Prints fresh access codes for the login form. Put one of them in the
// ACCESS_CODE environment variable.
func main() {
	count := flag.Int("n", 5, "number of codes to generate")
	flag.Parse()

	for i := 0; i < *count; i++ {
		code, err := utils.GenerateAccessCode()
		if err != nil {
			log.Fatalf("generate code: %v", err)
		}
		fmt.Println(code)
	}
}
