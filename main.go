package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	enginex "github.com/voxline/custodyline/dialog/engine"
	lookupx "github.com/voxline/custodyline/dialog/lookup"
	machinex "github.com/voxline/custodyline/dialog/machine"
	statex "github.com/voxline/custodyline/dialog/state"
	validatex "github.com/voxline/custodyline/dialog/validate"
	configx "github.com/voxline/custodyline/pkg/config"
	_ "github.com/voxline/custodyline/pkg/logger/autoload"
	twiliox "github.com/voxline/custodyline/pkg/twilio"
)

type AppConfig struct {
	// StoreDriver selects session storage: "memory" or "redis".
	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
}

func buildStore(driver string) (statex.Store, error) {
	switch driver {
	case "redis":
		redisCfg := configx.MustNew[statex.RedisConfig]("REDIS")
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return statex.NewRedisStore(client, statex.WithTTL(redisCfg.TTL))
	case "memory", "":
		return statex.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	store, err := buildStore(appCfg.StoreDriver)
	if err != nil {
		panic(err)
	}

	validatorCfg := configx.MustNew[validatex.Config]("VALIDATE")
	machineCfg := configx.MustNew[machinex.Config]("DIALOG")
	m, err := machinex.New(validatex.New(*validatorCfg), *machineCfg)
	if err != nil {
		panic(err)
	}

	lookupClientCfg := configx.MustNew[lookupx.ClientConfig]("LOOKUP")
	lookupClient, err := lookupx.NewClient(*lookupClientCfg)
	if err != nil {
		panic(err)
	}
	lookupCfg := configx.MustNew[lookupx.Config]("LOOKUP")
	orch, err := lookupx.NewOrchestrator(lookupClient, *lookupCfg)
	if err != nil {
		panic(err)
	}

	engineCfg := configx.MustNew[enginex.Config]("SESSION")
	eng, err := enginex.New(store, m, orch, *engineCfg)
	if err != nil {
		panic(err)
	}
	_ = eng

	twilioCfg := configx.MustNew[twiliox.Config]("TWILIO")
	twilioClient := twiliox.MustNew(*twilioCfg)
	_ = twilioClient

	fmt.Println("Config and clients loaded")
}
