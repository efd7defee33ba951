package main

import "course-importer/cmd"

func main() {
	cmd.Execute()
}
