package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/tasklive/internal/api/rpc"
	v1 "github.com/gosuda/tasklive/internal/api/v1"
	"github.com/gosuda/tasklive/internal/tracker"
)

func registerAPIRoutes(r chi.Router, svc *tracker.Service) {
	apiConfig := huma.DefaultConfig("Tasklive API", "1.0.0")
	apiConfig.Servers = []*huma.Server{
		{URL: "/api/v1"},
	}
	api := humachi.New(r, apiConfig)
	v1.RegisterRoutes(api, svc)
}

func registerRPCRoutes(r chi.Router, svc *tracker.Service) {
	rpcConfig := huma.DefaultConfig("Tasklive RPC", "1.0.0")
	rpcConfig.Servers = []*huma.Server{
		{URL: "/rpc"},
	}
	api := humachi.New(r, rpcConfig)
	rpc.Register(api, svc)
}
