package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourorg/payment-gateways/internal/adapter/hyperpay"
	"github.com/yourorg/payment-gateways/internal/adapter/mercadopago"
	"github.com/yourorg/payment-gateways/internal/adapter/mock"
	"github.com/yourorg/payment-gateways/internal/circuitbreaker"
	"github.com/yourorg/payment-gateways/internal/config"
	"github.com/yourorg/payment-gateways/internal/events"
	"github.com/yourorg/payment-gateways/internal/invoice"
	"github.com/yourorg/payment-gateways/internal/monitor"
	"github.com/yourorg/payment-gateways/internal/notify"
	"github.com/yourorg/payment-gateways/internal/plugin"
	"github.com/yourorg/payment-gateways/internal/reporting"
	"github.com/yourorg/payment-gateways/internal/settings"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

// App holds everything the HTTP handlers need.
type App struct {
	cfg      *config.Config
	store    settings.Store
	log      events.Log
	breakers *circuitbreaker.Registry
	manager  *plugin.Manager
	sender   *invoice.Sender
	reporter *reporting.Reporter

	paymentContract *monitor.ContractMonitor
	invoiceContract *monitor.ContractMonitor
}

func definitions() []plugin.Definition {
	return []plugin.Definition{hyperpay.Definition(), mercadopago.Definition()}
}

// newApp wires the stores, the plugin chain and the supporting services.
// Notifications go to the log and then to every dispatcher in extra.
func newApp(ctx context.Context, cfg *config.Config, store settings.Store, log events.Log, extra ...notify.Dispatcher) (*App, error) {
	capturePolicy, err := cfg.CapturePolicy()
	if err != nil {
		return nil, fmt.Errorf("capture policy: %w", err)
	}
	breakers := circuitbreaker.NewRegistry(cfg.BreakerSettings())

	if err := seedSettings(ctx, store, cfg); err != nil {
		return nil, err
	}

	base := plugin.Options{
		Environment:     cfg.Environment,
		Timeout:         cfg.GatewayTimeout,
		DefaultCurrency: cfg.DefaultCurrency,
		Policy:          capturePolicy,
		Breakers:        breakers,
	}
	paymentContract, err := loadContract("payment request", cfg.PaymentContractFile, monitor.PaymentRequestSchema)
	if err != nil {
		return nil, err
	}
	invoiceContract, err := loadContract("invoice request", cfg.InvoiceContractFile, monitor.InvoiceRequestSchema)
	if err != nil {
		return nil, err
	}

	dispatcher := append(notify.Multi{notify.LogDispatcher{}}, extra...)
	manager := plugin.NewManager(log, dispatcher)
	for _, def := range definitions() {
		opts := base
		if cfg.MockGateways {
			opts.Client = mock.NewShapedClient(def.Name, def.Normalizer)
		}
		p, err := plugin.NewLoader(store, opts).Load(ctx, def)
		if err != nil {
			return nil, err
		}
		manager.Register(p)
		logger.Info("gateway plugin registered", map[string]interface{}{
			"plugin": p.ID(),
			"active": p.Active(),
			"mock":   cfg.MockGateways,
		})
	}

	return &App{
		cfg:             cfg,
		store:           store,
		log:             log,
		breakers:        breakers,
		manager:         manager,
		sender:          invoice.NewSender(manager, log),
		reporter:        reporting.NewReporter(log),
		paymentContract: paymentContract,
		invoiceContract: invoiceContract,
	}, nil
}

// loadContract compiles the schema at path, or the built-in schema when path is empty.
func loadContract(name, path, builtin string) (*monitor.ContractMonitor, error) {
	if path == "" {
		return monitor.MustContractMonitor(name, builtin), nil
	}
	cm, err := monitor.NewContractMonitorFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s contract: %w", name, err)
	}
	logger.Info("request contract loaded", map[string]interface{}{"contract": name, "path": path})
	return cm, nil
}

// seedSettings stores gateway credentials supplied through the environment,
// activating the gateways they belong to. Mock mode activates every gateway.
// A configuration already in the store is left alone.
func seedSettings(ctx context.Context, store settings.Store, cfg *config.Config) error {
	seeds := map[string]settings.Values{}
	if cfg.HyperPayUserID != "" || cfg.MockGateways {
		values := hyperpay.Schema.Defaults()
		values["User ID"] = cfg.HyperPayUserID
		values["Password"] = cfg.HyperPayPassword
		values["Entity ID"] = cfg.HyperPayEntityID
		values["Supported currencies"] = cfg.GatewayCurrencies
		seeds[hyperpay.PluginID] = values
	}
	if cfg.MercadoPagoAccessToken != "" || cfg.MockGateways {
		values := mercadopago.Schema.Defaults()
		values["Access token"] = cfg.MercadoPagoAccessToken
		values["Public key"] = cfg.MercadoPagoPublicKey
		values["Supported currencies"] = cfg.GatewayCurrencies
		seeds[mercadopago.PluginID] = values
	}

	for id, values := range seeds {
		_, err := store.Load(ctx, id)
		switch {
		case err == nil:
			logger.Debug("gateway settings already stored, not seeding", map[string]interface{}{"plugin": id})
			continue
		case !errors.Is(err, settings.ErrNotFound):
			return fmt.Errorf("load %s settings: %w", id, err)
		}
		if err := store.Save(ctx, id, settings.Configuration{Active: true, Values: values}); err != nil {
			return fmt.Errorf("seed %s settings: %w", id, err)
		}
	}
	return nil
}

// openStores picks the configuration store and the audit log from cfg.
func openStores(ctx context.Context, cfg *config.Config) (settings.Store, events.Log, error) {
	var store settings.Store = settings.NewInMemoryStore()
	if cfg.EnableRedis {
		store = settings.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	var log events.Log = events.NewMemoryLog()
	if cfg.EnableDynamo {
		ddb, err := events.NewDynamoClient(ctx, events.DynamoOptions{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoEndpoint,
			AccessKeyID:     cfg.DynamoAccessKeyID,
			SecretAccessKey: cfg.DynamoSecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("dynamodb client: %w", err)
		}
		log = events.NewDynamoLog(ddb, cfg.DynamoTable)
	}
	return store, log, nil
}
