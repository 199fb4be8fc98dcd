// Package reporting wires the fault reporter to the hello pipeline's
// channels.
package reporting

import (
	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/report"
)

// Channel names as they appear in the report.
const (
	ChannelDI        = "di"
	ChannelAmbient   = "ambient"
	ChannelSideTable = "side_table"
	ChannelRoute     = "route"
)

// New builds a reporter reading the four channels the hello action writes.
func New(sinks ...report.Sink) *report.Reporter {
	opts := []report.Option{
		report.WithCorrelation(correlationID),
		report.WithChannel(ChannelDI, fromScope),
		report.WithChannel(ChannelAmbient, fromBag),
		report.WithChannel(ChannelSideTable, models.Param),
		report.WithChannel(ChannelRoute, fromRoute),
	}
	for _, s := range sinks {
		opts = append(opts, report.WithSink(s))
	}
	return report.New(opts...)
}

func fromScope(x *ctx.Context) (string, bool) {
	rc, err := models.CurrentRequestContext(x)
	if err != nil || rc.Param == "" {
		return "", false
	}
	return rc.Param, true
}

func correlationID(x *ctx.Context) (string, bool) {
	rc, err := models.CurrentRequestContext(x)
	if err != nil || rc.CorrelationID == "" {
		return "", false
	}
	return rc.CorrelationID, true
}

func fromBag(x *ctx.Context) (string, bool) {
	v, ok := x.Get(models.AmbientParamKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func fromRoute(x *ctx.Context) (string, bool) {
	p := x.Param("param")
	return p, p != ""
}
