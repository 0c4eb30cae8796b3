package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/synthsel/ss-sync/cmd/ss-sync/app"
)

func main() {
	app.NewApp().Run()
}
