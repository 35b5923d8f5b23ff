// cmd/server/main.go
package main

import (
	"github.com/javajoker/rfp-backend/internal/cli"
)

func main() {
	cli.Execute()
}
