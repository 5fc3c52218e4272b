package server

import (
	"fmt"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	commandRescan = "poxref.rescan"
	commandReload = "poxref.reload"
)

func commandNames() []string {
	return []string{commandRescan, commandReload}
}

func (s *Server) onExecuteCommand(_ *glsp.Context, p *protocol.ExecuteCommandParams) (any, error) {
	if !s.ready() {
		return nil, nil
	}
	logger := commonlog.GetLoggerf("poxref.server")
	switch p.Command {
	case commandRescan:
		logger.Info("rescan requested")
		go s.engine.TriggerFullScan(s.ctx)
	case commandReload:
		logger.Info("reload requested")
		go s.engine.Reset(s.ctx)
	default:
		return nil, fmt.Errorf("unknown command %q", p.Command)
	}
	return nil, nil
}
