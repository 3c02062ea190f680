package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stayops/revaudit/internal/clock"
	"github.com/stayops/revaudit/internal/config"
	"github.com/stayops/revaudit/internal/migration"
	"github.com/stayops/revaudit/internal/server"
	"github.com/stayops/revaudit/pkg/db"
	"github.com/stayops/revaudit/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		config.SheetModule,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
