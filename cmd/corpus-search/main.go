package main

import "github.com/Adithya-Monish-Kumar-K/corpus-search/internal/cli"

func main() {
	cli.Execute()
}
