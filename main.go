package main

import (
	"log"

	"autodj/cmd"
)

func main() {
	cmd.Execute()
	// If Execute() had a problem, Cobra would have called os.Exit.
	// Reaching here means the command completed successfully.
	log.Println("Application command execution finished or server started.")
}
