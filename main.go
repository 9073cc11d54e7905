package main

import "github.com/Abhigyan126/Make-FaceDB/cmd"

func main() {
	cmd.Execute()
}
