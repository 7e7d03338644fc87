package main

import (
	"go.uber.org/fx"

	"github.com/procurehub/auctiond/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
