// Command dbstream copies tables between two SQL databases.
package main

import (
	"os"

	"github.com/joho/godotenv"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "dbstream/internal/storage/all"
)

func main() {
	// load the .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
