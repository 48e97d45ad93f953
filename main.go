package main

import "github.com/Zhima-Mochi/artisanmart/internal/presentation/cli"

func main() {
	cli.Execute()
}
