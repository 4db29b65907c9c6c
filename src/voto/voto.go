package voto

import (
	"github.com/leandrolasalle/voto-apresentacao/src/config"
	"github.com/leandrolasalle/voto-apresentacao/src/gateway"
	"github.com/leandrolasalle/voto-apresentacao/src/node"
	"github.com/leandrolasalle/voto-apresentacao/src/service"
	"github.com/leandrolasalle/voto-apresentacao/src/store"
)

// Voto is the top-level engine: it wires the local store, the persistence
// gateway, the session node and the HTTP service from a Config.
type Voto struct {
	Config  *config.Config
	Store   store.Store
	Gateway gateway.Gateway
	Node    *node.Node
	Service *service.Service
}

// NewVoto ...
func NewVoto(config *config.Config) *Voto {
	engine := &Voto{
		Config: config,
	}

	return engine
}

func (v *Voto) initStore() error {
	seed := store.DefaultSeed()

	if !v.Config.Store {
		v.Store = store.NewInmemStore(seed)

		v.Config.Logger().Debug("created new in-mem store")
	} else {
		var err error

		v.Config.Logger().WithField("path", v.Config.DatabaseDir).Debug("Attempting to load or create database")

		badgerStore, err := store.LoadOrCreateBadgerStore(seed, v.Config.DatabaseDir)

		if err != nil {
			return err
		}

		if badgerStore.NeedBootstrap() {
			v.Config.Logger().Debug("loaded badger store from existing database")
		} else {
			v.Config.Logger().Debug("created new badger store from fresh database")
		}

		v.Store = badgerStore
	}

	return nil
}

func (v *Voto) initGateway() error {
	if v.Config.DatabaseURL == "" {
		v.Config.Logger().Debug("no database url, running offline")
		return nil
	}

	ids := []int{}
	for _, c := range v.Store.Candidates() {
		ids = append(ids, c.ID)
	}

	gw, err := gateway.NewPostgresGateway(v.Config.DatabaseURL, ids, v.Config.Logger())
	if err != nil {
		return err
	}

	v.Gateway = gw

	return nil
}

func (v *Voto) initNode() error {
	v.Node = node.NewNode(
		v.Store,
		v.Gateway,
		v.Config.MiningDelay,
		v.Config.Logger(),
	)

	return v.Node.Init()
}

func (v *Voto) initService() error {
	if v.Config.ServiceAddr != "" {
		v.Service = service.NewService(v.Config.ServiceAddr, v.Node, v.Config.Logger())
	}
	return nil
}

// Init builds the engine components in dependency order.
func (v *Voto) Init() error {
	if err := v.initStore(); err != nil {
		return err
	}

	if err := v.initGateway(); err != nil {
		return err
	}

	if err := v.initNode(); err != nil {
		return err
	}

	if err := v.initService(); err != nil {
		return err
	}

	return nil
}

// Run starts the service and blocks on the node's mining loop.
func (v *Voto) Run() {
	if v.Service != nil {
		go v.Service.Serve()
	}

	v.Node.Run()
}

// Shutdown tears the engine down in reverse dependency order.
func (v *Voto) Shutdown() {
	if v.Node != nil {
		v.Node.Shutdown()
	}

	if v.Gateway != nil {
		if err := v.Gateway.Close(); err != nil {
			v.Config.Logger().WithError(err).Error("Failed to close gateway")
		}
	}

	if v.Store != nil {
		if err := v.Store.Close(); err != nil {
			v.Config.Logger().WithError(err).Error("Failed to close store")
		}
	}
}
