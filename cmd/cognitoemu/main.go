// Command cognitoemu wires the emulator's persistence backend, trigger
// bindings, and message log, then prints the resulting pool/client ids so
// a caller's own HTTP listener (out of scope for this module — see
// spec.md §1) can dispatch AWSCognitoIdentityProviderService.<Op> targets
// against the constructed Engine.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	cognitoemu "github.com/localcognito/cognitoemu"
	"github.com/localcognito/cognitoemu/store"
	"github.com/localcognito/cognitoemu/trigger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		bindAddr       = flag.String("bind", "127.0.0.1:9229", "address the caller's HTTP listener will bind; recorded and logged only")
		redisAddr      = flag.String("redis-addr", "", "Redis address backing pool persistence; empty uses an in-process memory backend")
		redisPrefix    = flag.String("redis-prefix", "cognitoemu", "key prefix for pool documents in Redis")
		triggerConfig  = flag.String("trigger-config", "", "path to a JSON document binding hooks to external process handlers")
		messageLogPath = flag.String("message-log", "", "path to append delivery log lines to; empty discards deliveries")
		seedPoolName   = flag.String("seed-pool-name", "", "if set, pre-create a user pool with this display name")
		seedClientName = flag.String("seed-client-name", "", "if set (with -seed-pool-name), pre-create an app client on the seeded pool")
	)
	flag.Parse()

	builder := cognitoemu.New()

	backend, err := buildBackend(*redisAddr, *redisPrefix)
	if err != nil {
		log.Printf("cognitoemu: backend: %v", err)
		return 1
	}
	builder = builder.WithBackend(backend)

	if *messageLogPath != "" {
		f, err := os.OpenFile(*messageLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("cognitoemu: open message log: %v", err)
			return 1
		}
		defer f.Close()
		builder = builder.WithMessageLog(f)
	}

	if *triggerConfig != "" {
		bindings, err := loadTriggerBindings(*triggerConfig)
		if err != nil {
			log.Printf("cognitoemu: trigger config: %v", err)
			return 1
		}
		for hook, handler := range bindings {
			builder = builder.WithTrigger(hook, handler)
		}
	}

	engine, err := builder.Build()
	if err != nil {
		log.Printf("cognitoemu: build: %v", err)
		return 1
	}
	defer engine.Close()

	ctx := context.Background()

	if *seedPoolName != "" {
		pool, err := engine.CreateUserPool(ctx, *seedPoolName)
		if err != nil {
			log.Printf("cognitoemu: seed pool: %v", err)
			return 1
		}
		log.Printf("cognitoemu: seeded user pool %s (%s)", pool.Id, pool.Name)

		if *seedClientName != "" {
			client, err := engine.CreateUserPoolClient(ctx, pool.Id, *seedClientName, nil)
			if err != nil {
				log.Printf("cognitoemu: seed client: %v", err)
				return 1
			}
			log.Printf("cognitoemu: seeded app client %s (%s)", client.ClientId, client.ClientName)
		}
	}

	log.Printf("cognitoemu: engine ready; bind your HTTP listener to %s and dispatch X-Amz-Target onto handlers.Handlers", *bindAddr)
	return 0
}

func buildBackend(redisAddr, prefix string) (store.Backend, error) {
	if redisAddr == "" {
		return store.NewMemoryBackend(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", redisAddr, err)
	}
	return store.NewRedisBackend(client, prefix), nil
}

// triggerBindingDoc is the on-disk shape of -trigger-config: a JSON object
// mapping hook name to the argv of an external process invoked per
// spec.md §9's "script source or external process endpoints" design note.
type triggerBindingDoc map[string][]string

func loadTriggerBindings(path string) (map[trigger.Hook]trigger.Handler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc triggerBindingDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	bindings := make(map[trigger.Hook]trigger.Handler, len(doc))
	for hookName, command := range doc {
		if len(command) == 0 {
			return nil, fmt.Errorf("hook %q: empty command", hookName)
		}
		bindings[trigger.Hook(hookName)] = trigger.NewProcessHandler(command)
	}
	return bindings, nil
}
