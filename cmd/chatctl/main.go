// chatctl -- WebSocket admin CLI client for chatd.
package main

import "github.com/chatcore/chatd/cmd/chatctl/commands"

func main() {
	commands.Execute()
}
