package main

import (
	"os"

	"chat-relay/backend/internal/app"
)

// @title           Chat Relay API
// @version         1.0
// @description     Relays a chat message to a text-generation backend and returns the cleaned reply.
// @BasePath        /
func main() {
	os.Exit(app.Run(os.Args[1:]))
}
