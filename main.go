package main

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/peterson-umoke/intelephense/internal/server"
)

func main() {
	commonlog.Configure(1, nil)

	s := server.NewServer()
	s.Run()
}
