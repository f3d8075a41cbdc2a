package server

import (
	"context"
	"embed"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/iWorld-y/stock_radar/app/display/internal/conf"
	"github.com/iWorld-y/stock_radar/app/display/internal/service"
)

//go:embed assets/*
var assets embed.FS

const (
	operationListReports = "/display.v1.Display/ListReports"
	operationGetReport   = "/display.v1.Display/GetReport"
)

// DisplayHTTPServer 报告查看接口
type DisplayHTTPServer interface {
	ListReports(context.Context, *service.ListReportsReq) (*service.ListReportsReply, error)
	GetReport(context.Context, *service.GetReportReq) (*service.GetReportReply, error)
}

func NewHTTPServer(c *conf.Server, s DisplayHTTPServer, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			} else {
				log.NewHelper(logger).Warnf("忽略无效的超时配置: %s", c.Http.Timeout)
			}
		}
	}

	srv := http.NewServer(opts...)
	registerDisplayHTTPServer(srv, s)

	srv.HandleFunc("/", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		content, err := assets.ReadFile("assets/index.html")
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(content)
	})

	return srv
}

func registerDisplayHTTPServer(srv *http.Server, s DisplayHTTPServer) {
	r := srv.Route("/api")
	r.GET("/reports", listReportsHandler(s))
	r.GET("/reports/{id}", getReportHandler(s))
}

func listReportsHandler(srv DisplayHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.ListReportsReq
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, operationListReports)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListReports(ctx, req.(*service.ListReportsReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*service.ListReportsReply))
	}
}

func getReportHandler(srv DisplayHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.GetReportReq
		if err := ctx.BindVars(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, operationGetReport)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.GetReport(ctx, req.(*service.GetReportReq))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out.(*service.GetReportReply))
	}
}
