package main

import (
	"log"

	"compareeconomize/backend/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatal(err)
	}
}
