package main

import (
	"github.com/geraldpeng6/crawler-for-attack/cmd"
)

func main() {
	cmd.Execute()
}
