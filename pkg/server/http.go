package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"studiodesk/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ProvideHTTPServer = fx.Module("http.server",
	fx.Provide(NewEngine, NewHttpServer),
	fx.Invoke(Run),
)

type Server struct {
	server *http.Server
	certs  *certStore
}

type Params struct {
	fx.In
	Config  *config.Config
	Handler *gin.Engine
}

func NewHttpServer(p Params) (*Server, error) {
	cfg := p.Config
	srv := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Addr),
			Handler:      p.Handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}

	if cfg.TLS.Enable {
		srv.certs = newCertStore(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		if err := srv.certs.load(); err != nil {
			return nil, fmt.Errorf("load tls key pair: %w", err)
		}
		srv.server.TLSConfig = srv.certs.config()
	}

	return srv, nil
}

func Run(lc fx.Lifecycle, srv *Server) {
	watchCtx, stopWatch := context.WithCancel(context.Background())

	serve := func(listen func() error) {
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("http server stopped", zap.Error(err))
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if srv.certs != nil {
				go srv.certs.watch(watchCtx)
				zap.L().Info("starting https server", zap.String("addr", srv.server.Addr))
				go serve(func() error { return srv.server.ListenAndServeTLS("", "") })
				return nil
			}
			zap.L().Info("starting http server", zap.String("addr", srv.server.Addr))
			go serve(srv.server.ListenAndServe)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopWatch()
			zap.L().Info("shutting down http server")
			return srv.server.Shutdown(ctx)
		},
	})
}
