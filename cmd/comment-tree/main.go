package main

import "github.com/mvp-joe/comment-tree/internal/cli"

func main() {
	cli.Execute()
}
