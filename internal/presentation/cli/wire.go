package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	appinventory "github.com/Zhima-Mochi/artisanmart/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/artisanmart/internal/application/order"
	apppayment "github.com/Zhima-Mochi/artisanmart/internal/application/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	auditsink "github.com/Zhima-Mochi/artisanmart/internal/infrastructure/audit"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/config"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/id"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/artisanmart/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/cod"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/paytm"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/razorpay"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	httppresentation "github.com/Zhima-Mochi/artisanmart/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/artisanmart/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

type stores struct {
	orders   domorder.Repository
	products inventory.ProductStore
	carts    inventory.CartStore
	audit    audit.Sink
	close    func()
}

type app struct {
	handler *httppresentation.Handler
	log     observability.Logger
	closers []func()
}

// close runs closers in reverse registration order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Config) (_ *app, err error) {
	pricing, err := cfg.PricingRules()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tel, logger, flush, err := infraobs.Bootstrap(infraobs.Options{
		Service:    cfg.Service.Name,
		Env:        cfg.Service.Env,
		LogLevel:   cfg.Service.LogLevel,
		Registerer: reg,
	})
	if err != nil {
		return nil, err
	}

	a := &app{log: logger, closers: []func(){func() { _ = flush() }}}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	st, err := openStores(ctx, cfg, tel.Logger())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)

	sinks := audit.Multi{auditsink.NewLogSink(tel.Logger()), st.audit}
	if cfg.KafkaEnabled() {
		ks := kafka.NewAuditSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		sinks = append(sinks, ks)
		a.closers = append(a.closers, func() { _ = ks.Close() })
	}

	gateways := payment.NewRegistry(gatewaysFor(cfg, tel)...)
	for _, g := range lo.Filter(gateways.Names(), func(name string, _ int) bool {
		gw, _ := gateways.Lookup(name)
		return gw.Synthetic()
	}) {
		tel.Logger().Warn("payment_gateway_synthetic", observability.F("gateway", g))
	}

	bus := outbox.NewBus(tel.Logger())
	bus.Start(ctx)
	a.closers = append(a.closers, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		bus.Stop(stopCtx)
	})

	appinventory.NewSalesCountWorker(st.products, tel).Start(bus, workerpresentation.EventLogger(tel.Logger()))

	ids := id.NewUUIDGenerator()
	clock := application.SystemClock{}
	effects := application.Effects{
		Ledger:    inventory.NewLedger(st.products),
		Audit:     sinks,
		Publisher: bus,
		IDs:       ids,
		Clock:     clock,
		Inst:      application.NewInstrument(tel, "order-effects"),
	}

	create := apporder.NewCreateOrderUseCase(apporder.CreateDeps{
		Repo:     st.orders,
		Products: st.products,
		Carts:    st.carts,
		Methods:  gateways,
		Pricing:  pricing,
		IDs:      ids,
		Numbers:  id.NewOrderNumberGenerator(),
		Clock:    clock,
		Effects:  effects,
	}, tel)
	a.closers = append(a.closers, create.Wait)

	uc := httppresentation.UseCases{
		CreateOrder:   create,
		CancelOrder:   apporder.NewCancelOrderUseCase(st.orders, effects, clock, tel),
		UpdateStatus:  apporder.NewUpdateStatusUseCase(st.orders, effects, clock, tel),
		GetOrder:      apporder.NewGetOrderUseCase(st.orders, tel),
		ListMyOrders:  apporder.NewListMyOrdersUseCase(st.orders, tel),
		CreateIntent:  apppayment.NewCreateIntentUseCase(st.orders, gateways, effects, clock, tel),
		Verify:        apppayment.NewVerifyPaymentUseCase(st.orders, gateways, effects, clock, tel),
		Refund:        apppayment.NewRefundUseCase(st.orders, gateways, effects, clock, tel),
		Webhook:       apppayment.NewReconcileWebhookUseCase(st.orders, gateways, effects, clock, tel),
		PaymentStatus: apppayment.NewPaymentStatusUseCase(st.orders, tel),
	}
	metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	a.handler = httppresentation.NewHandler(uc, gateways, metrics, tel)
	return a, nil
}

func gatewaysFor(cfg config.Config, tel observability.Observability) []payment.Gateway {
	gws := []payment.Gateway{
		razorpay.New(razorpay.Config{
			KeyID:         cfg.Payment.Razorpay.KeyID,
			KeySecret:     cfg.Payment.Razorpay.KeySecret,
			WebhookSecret: cfg.Payment.Razorpay.WebhookSecret,
			BaseURL:       cfg.Payment.Razorpay.BaseURL,
		}, tel),
		paytm.New(paytm.Config{
			MerchantID:  cfg.Payment.Paytm.MerchantID,
			MerchantKey: cfg.Payment.Paytm.MerchantKey,
			Website:     cfg.Payment.Paytm.Website,
			BaseURL:     cfg.Payment.Paytm.BaseURL,
		}, tel),
	}
	if cfg.Payment.COD.Enabled {
		gws = append(gws, cod.New())
	}
	return gws
}

func seedProducts(cfg config.Config) []inventory.Product {
	return lo.Map(cfg.Seed.Products, func(p config.SeedProduct, _ int) inventory.Product {
		return inventory.Product{
			ID:        p.ID,
			SellerID:  p.SellerID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			ImageRef:  p.ImageRef,
			Stock:     p.Stock,
			Active:    p.Active,
		}
	})
}

func openStores(ctx context.Context, cfg config.Config, log observability.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Info("storage_ready", observability.F("driver", config.DriverMemory))
		// No durable audit store in memory mode; the log sink carries every entry.
		return &stores{
			orders:   memory.NewOrderRepository(),
			products: memory.NewProductStore(seedProducts(cfg)...),
			carts:    memory.NewCartStore(),
			close:    func() {},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		products := postgres.NewProductStore(pool)
		var errs []error
		for _, p := range seedProducts(cfg) {
			errs = append(errs, products.Upsert(ctx, p))
		}
		if err := errors.Join(errs...); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed products: %w", err)
		}
		log.Info("storage_ready", observability.F("driver", config.DriverPostgres))
		return &stores{
			orders:   postgres.NewOrderStore(pool),
			products: products,
			carts:    postgres.NewCartStore(pool),
			audit:    postgres.NewAuditSink(pool),
			close:    pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("storage.driver %q is not supported", cfg.Storage.Driver)
	}
}
