package main

import "sentilens/internal/app"

func main() {
	app.Main()
}
