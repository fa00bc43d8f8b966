package main

import "social-posts-backend/cmd"

func main() {
	cmd.Run()
}
