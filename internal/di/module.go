package di

import (
	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/adapter/receipt"
	"github.com/polkiloo/marketpay/internal/adapter/supplier"
	"github.com/polkiloo/marketpay/internal/app"
	"github.com/polkiloo/marketpay/internal/config"
	"github.com/polkiloo/marketpay/internal/logger"
	"github.com/polkiloo/marketpay/internal/pkg/auth"
	"github.com/polkiloo/marketpay/internal/server/http/handlers"
	"github.com/polkiloo/marketpay/internal/server/http/router"
	"github.com/polkiloo/marketpay/internal/storage/postgres"
	"github.com/polkiloo/marketpay/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		gateway.Module,
		receipt.Module,
		supplier.Module,
		usecase.Module,
		fx.Provide(
			func(s *postgres.Storage) app.HealthChecker { return s },
			func(f *app.MarketFacade) handlers.MarketFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
