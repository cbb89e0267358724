package main

import (
	"log"
)

// TODO: swagger docs for /api and /auth
func main() {
	startWithDig()
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
